package model

import "time"

// LoanStatus filters loans by lifecycle state. The empty status matches every loan.
type LoanStatus string

const (
	LoanStatusAny      LoanStatus = ""
	LoanStatusActive   LoanStatus = "active"
	LoanStatusReturned LoanStatus = "returned"
	LoanStatusOverdue  LoanStatus = "overdue"
)

// Valid reports whether s is a known status.
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusAny, LoanStatusActive, LoanStatusReturned, LoanStatusOverdue:
		return true
	}
	return false
}

// Loan records a borrower holding a book. A loan is active while IsReturned is false.
type Loan struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	BookID     uint       `gorm:"not null;index" json:"book_id"`
	Book       Book       `gorm:"foreignKey:BookID;constraint:OnDelete:CASCADE" json:"book"`
	BorrowerID uint       `gorm:"not null;index" json:"borrower_id"`
	Borrower   User       `gorm:"foreignKey:BorrowerID" json:"borrower"`
	LoanDate   time.Time  `gorm:"type:date;not null;index" json:"loan_date"`
	ReturnDate *time.Time `gorm:"type:date" json:"return_date"`
	ReturnedAt *time.Time `json:"returned_at"`
	IsReturned bool       `gorm:"not null;index" json:"is_returned"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func (Loan) TableName() string {
	return "loans"
}

// IsOverdue reports whether the loan is active and past its expected return date.
func (l *Loan) IsOverdue(today time.Time) bool {
	return !l.IsReturned && l.ReturnDate != nil && l.ReturnDate.Before(DateOf(today))
}

// DaysOverdue returns the number of whole days the loan is past its expected return date.
func (l *Loan) DaysOverdue(today time.Time) int64 {
	if !l.IsOverdue(today) {
		return 0
	}
	return int64(DateOf(today).Sub(DateOf(*l.ReturnDate)).Hours() / 24)
}

// DateOf truncates t to midnight UTC of its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
