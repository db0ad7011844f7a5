package model

// swagger:model User
type User struct {
	BaseModel
	Name           string `gorm:"size:255;not null" json:"name"`
	Email          string `gorm:"size:255;uniqueIndex;not null" json:"email"`
	SubscriptionID string `gorm:"size:255" json:"subscriptionId"`
}

func (User) TableName() string {
	return "users"
}
