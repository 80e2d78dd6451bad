package db

import (
	"time"
)

// Domain kinds as stored by the administration layer.
const (
	KindNative = "NATIVE"
	KindMaster = "MASTER"
	KindSlave  = "SLAVE"
)

// Domain is a zone owned by the record store. The administration layer
// creates and mutates rows; this daemon only reads them.
type Domain struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;size:255" json:"name"`
	Kind      string    `gorm:"column:type;size:16" json:"type"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Records   []Record  `gorm:"foreignKey:DomainID" json:"records,omitempty"`
}

// Record is a single resource record row.
type Record struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	DomainID  uint      `gorm:"index" json:"domain_id"`
	Name      string    `gorm:"index;size:255" json:"name"`
	Type      string    `gorm:"index;size:20" json:"type"`
	Content   string    `gorm:"type:text" json:"content"`
	TTL       uint32    `gorm:"column:ttl" json:"ttl"`
	Prio      *int      `gorm:"column:prio" json:"prio,omitempty"`
	Disabled  bool      `gorm:"default:false" json:"disabled"`
	Auth      bool      `gorm:"default:true" json:"auth"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Table names match the existing schema owned by the administration layer.
func (Domain) TableName() string { return "domains" }

func (Record) TableName() string { return "records" }
