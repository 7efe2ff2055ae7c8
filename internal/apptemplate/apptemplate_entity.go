package apptemplate

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StringList is a jsonb array of strings.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return fmt.Errorf("string list: unsupported scan type %T", src)
}

type ApplicationTemplate struct {
	ID               uuid.UUID  `gorm:"type:uuid;primaryKey"`
	OrgID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	Title            string     `gorm:"not null"`
	Body             string     `gorm:"type:text;not null"`
	DefaultApprovers StringList `gorm:"type:jsonb;not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (ApplicationTemplate) TableName() string { return "application_templates" }

type Rendered struct {
	Title            string
	Body             string
	DefaultApprovers []string
}
