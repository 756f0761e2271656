package types

type User struct {
	Id            string `json:"id"`
	Username      string `json:"username" validate:"required"`
	FavoriteGenre string `json:"favoriteGenre" validate:"required"`
}

type Author struct {
	Id    string   `json:"id"`
	Name  string   `json:"name" validate:"required"`
	Born  *int32   `json:"born,omitempty"`
	Books []string `json:"book_ids"` // ordered by insertion
}

type Book struct {
	Id        string   `json:"id"`
	Title     string   `json:"title" validate:"required"`
	Author    string   `json:"author_id" validate:"required"`
	Published *int32   `json:"published,omitempty"`
	Genres    []string `json:"genres"`
}

// BookAdded is published on the TopicBookAdded topic after a book and its author were stored.
type BookAdded struct {
	Book   Book
	Author Author
}

const TopicBookAdded = "BOOK_ADDED"
