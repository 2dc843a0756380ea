// internal/models/product.go
package models

import (
	"database/sql/driver"
	"encoding/json"
)

// ProductColor is a display color option: name plus CSS value.
type ProductColor struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductColorList keeps the admin-defined ordering, stored as jsonb.
type ProductColorList []ProductColor

func (l ProductColorList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

func (l *ProductColorList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		if str, isStr := value.(string); isStr {
			bytes = []byte(str)
		} else {
			return nil
		}
	}

	return json.Unmarshal(bytes, l)
}

type Product struct {
	BaseModel
	Name        string           `json:"name" gorm:"size:100;not null"`
	Description string           `json:"description" gorm:"type:text"`
	Price       float64          `json:"price" gorm:"type:decimal(10,2);not null"`
	Images      StringList       `json:"images" gorm:"type:jsonb"`
	Category    string           `json:"category" gorm:"size:100;index"`
	Slug        string           `json:"slug" gorm:"uniqueIndex;size:120;not null"`
	Sizes       StringList       `json:"sizes" gorm:"type:jsonb"`
	Colors      ProductColorList `json:"colors" gorm:"type:jsonb"`
	Stock       int              `json:"stock" gorm:"default:0;check:stock >= 0"`
	IsFeatured  bool             `json:"is_featured" gorm:"default:false;index"`
	Badge       string           `json:"badge" gorm:"size:30"`
}

// DefaultSizes is applied when a product is created without explicit sizes.
var DefaultSizes = StringList{"S", "M", "L", "XL"}
