package employee

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Employee struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrgID            uuid.UUID  `gorm:"type:uuid;index"`
	FullName         string     `gorm:"not null"`
	Email            string     `gorm:"uniqueIndex:uq_employee_email"`
	DepartmentID     *uuid.UUID `gorm:"type:uuid"`
	DesignationID    *uuid.UUID `gorm:"type:uuid"`
	ManagerID        *uuid.UUID `gorm:"type:uuid"`
	HireDate         time.Time  `gorm:"type:date;not null"`
	ProbationEndDate *time.Time `gorm:"type:date"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        gorm.DeletedAt `gorm:"index"`
}

func (Employee) TableName() string { return "employees" }

// OnProbation reports whether at falls before the probation end date.
func (e Employee) OnProbation(at time.Time) bool {
	return e.ProbationEndDate != nil && at.Before(*e.ProbationEndDate)
}

// TenureDays counts whole days since hire, never negative.
func (e Employee) TenureDays(at time.Time) int {
	if at.Before(e.HireDate) {
		return 0
	}
	return int(at.Sub(e.HireDate).Hours() / 24)
}

// Contact is the subset of an employee that notifications need.
type Contact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
