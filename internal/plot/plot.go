package plot

// Plot represents a narrative record for a work in progress.
type Plot struct {
	ID      int64   `gorm:"primaryKey;autoIncrement"`
	Title   string  `gorm:"size:200;not null"`
	Work    string  `gorm:"size:100;not null"`
	Status  string  `gorm:"size:50;not null"`
	Summary *string `gorm:"type:text"`
}

// TableName defines the table name for the Plot model.
func (Plot) TableName() string {
	return "plots"
}
