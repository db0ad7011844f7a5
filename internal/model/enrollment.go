package model

import (
	"slices"

	"gorm.io/datatypes"
)

// Enrollment 同一 (course, user) 只允许一条，由业务层先查后插保证
// swagger:model Enrollment
type Enrollment struct {
	BaseModel
	CourseCid         string                   `gorm:"size:64;not null;index" json:"courseCid"`
	UserEmail         string                   `gorm:"size:255;not null;index" json:"userEmail"`
	CompletedChapters datatypes.JSONSlice[int] `json:"completedChapters" swaggertype:"array,integer"`

	Course *Course `gorm:"foreignKey:CourseCid;references:Cid" json:"-"`
	User   *User   `gorm:"foreignKey:UserEmail;references:Email" json:"-"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}

// MarkChapterCompleted 保持升序且不重复，返回是否有变化
func (e *Enrollment) MarkChapterCompleted(index int) bool {
	if slices.Contains(e.CompletedChapters, index) {
		return false
	}
	chapters := append([]int{}, e.CompletedChapters...)
	chapters = append(chapters, index)
	slices.Sort(chapters)
	e.CompletedChapters = datatypes.NewJSONSlice(chapters)
	return true
}
