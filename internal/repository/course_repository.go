package repository

import (
	"ai_course_backend/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) FindByCid(cid string) (*model.Course, error) {
	var course model.Course
	err := r.DB.Where("cid = ?", cid).First(&course).Error
	return &course, err
}

// FindByOwner 按创建时间倒序
func (r *CourseRepository) FindByOwner(email string) ([]model.Course, error) {
	var courses []model.Course
	err := r.DB.Where("owner_email = ?", email).
		Order("created_at DESC").
		Order("id DESC").
		Find(&courses).Error
	return courses, err
}

// FindByOwnerAndName 同名课程取最新一条
func (r *CourseRepository) FindByOwnerAndName(email, name string) (*model.Course, error) {
	var course model.Course
	err := r.DB.Where("owner_email = ? AND name = ?", email, name).
		Order("id DESC").
		First(&course).Error
	return &course, err
}

// UpdateContent 整体覆盖内容 JSON，bannerURL 为空时保留原值
func (r *CourseRepository) UpdateContent(cid string, content datatypes.JSON, bannerURL string) error {
	updates := map[string]interface{}{
		"course_content_json": content,
		"status":              model.CourseContentGenerated,
	}
	if bannerURL != "" {
		updates["banner_image_url"] = bannerURL
	}

	result := r.DB.Model(&model.Course{}).Where("cid = ?", cid).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
