package model

import (
	"gorm.io/datatypes"
)

type CourseStatus string

const (
	CourseCreated          CourseStatus = "created"
	CourseContentGenerated CourseStatus = "content_generated"
)

// Course 大纲与内容以整块 JSON 存储，每次生成整体覆盖
// swagger:model Course
type Course struct {
	BaseModel
	Cid               string         `gorm:"size:64;uniqueIndex;not null" json:"cid"`
	Name              string         `gorm:"size:255" json:"name"`
	Description       string         `gorm:"type:text" json:"description"`
	ChapterCount      int            `gorm:"not null" json:"chapterCount"`
	IncludeVideo      bool           `gorm:"default:false" json:"includeVideo"`
	Category          string         `gorm:"size:255" json:"category"`
	Level             string         `gorm:"size:64;not null" json:"level"`
	CourseOutlineJSON datatypes.JSON `json:"courseOutlineJson" swaggertype:"object"`
	CourseContentJSON datatypes.JSON `json:"courseContentJson" swaggertype:"object"`
	OwnerEmail        string         `gorm:"size:255;not null;index" json:"ownerEmail"`
	BannerImageURL    string         `gorm:"size:1024" json:"bannerImageUrl"`
	Status            CourseStatus   `gorm:"size:32;default:'created'" json:"status"`

	Owner *User `gorm:"foreignKey:OwnerEmail;references:Email" json:"-"`
}

func (Course) TableName() string {
	return "courses"
}

func (c *Course) HasContent() bool {
	return c.Status == CourseContentGenerated && len(c.CourseContentJSON) > 0
}
