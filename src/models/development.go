package models

import "ptx/src/types"

type Development struct {
	ID          uint    `gorm:"primarykey" json:"id"`
	Name        string  `json:"name,omitempty"`
	Slug        string  `gorm:"uniqueIndex" json:"slug,omitempty"`
	Location    string  `json:"location,omitempty"`
	Description *string `json:"description,omitempty"`
	DeveloperID uint    `json:"developer_id,omitempty"`

	Developer *User  `gorm:"foreignKey:developer_id" json:"developer,omitempty"`
	Units     []Unit `json:"units,omitempty"`

	types.Timestamps
}
