package model

import "time"

// ISBNLength is the exact number of characters of a stored isbn.
const ISBNLength = 13

// Book represents a catalogued book. IsAvailable is true exactly when no
// active loan references the book.
type Book struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"type:varchar(200);not null;index" json:"title"`
	AuthorID    uint      `gorm:"not null;index" json:"author_id"`
	Author      Author    `gorm:"foreignKey:AuthorID;constraint:OnDelete:RESTRICT" json:"author"`
	ISBN        string    `gorm:"column:isbn;type:varchar(13);uniqueIndex;not null" json:"isbn"`
	PageCount   int       `gorm:"not null" json:"page_count"`
	IsAvailable bool      `gorm:"not null;index" json:"is_available"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}
