package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Book is a catalog item. The catalog store owns every field; the
// recommendation pipeline only reads them.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID         string    `bun:",pk" json:"id"`
	Title      string    `bun:",notnull" json:"title"`
	Author     string    `bun:",nullzero" json:"author"`
	Publisher  string    `bun:",nullzero" json:"publisher,omitempty"`
	Subject    string    `bun:",nullzero" json:"subject"`
	Language   string    `bun:",nullzero" json:"language,omitempty"`
	Popularity float64   `bun:",notnull,default:0" json:"popularity"`
	ViewCount  int64     `bun:",notnull,default:0" json:"view_count"`
	CreatedAt  time.Time `bun:",nullzero,notnull,default:current_timestamp" json:"-"`
}

// AuthorCount is one row of an author GROUP BY.
type AuthorCount struct {
	Author    string `bun:"author"`
	BookCount int    `bun:"book_count"`
}

// SubjectCount is one row of a subject GROUP BY.
type SubjectCount struct {
	Subject   string `bun:"subject"`
	BookCount int    `bun:"book_count"`
}
