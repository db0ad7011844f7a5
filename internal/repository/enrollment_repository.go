package repository

import (
	"ai_course_backend/internal/model"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type EnrollmentRepository struct {
	DB *gorm.DB
}

func NewEnrollmentRepository(db *gorm.DB) *EnrollmentRepository {
	return &EnrollmentRepository{DB: db}
}

func (r *EnrollmentRepository) Find(courseCid, userEmail string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.DB.Where("course_cid = ? AND user_email = ?", courseCid, userEmail).
		First(&enrollment).Error
	return &enrollment, err
}

func (r *EnrollmentRepository) Create(enrollment *model.Enrollment) error {
	if enrollment.CompletedChapters == nil {
		enrollment.CompletedChapters = datatypes.NewJSONSlice([]int{})
	}
	return r.DB.Create(enrollment).Error
}

func (r *EnrollmentRepository) Count(courseCid, userEmail string) (int64, error) {
	var count int64
	err := r.DB.Model(&model.Enrollment{}).
		Where("course_cid = ? AND user_email = ?", courseCid, userEmail).
		Count(&count).Error
	return count, err
}

// ListByUserWithCourse 只返回课程仍存在的报名，最新报名在前
func (r *EnrollmentRepository) ListByUserWithCourse(userEmail string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.DB.InnerJoins("Course").
		Where("enrollments.user_email = ?", userEmail).
		Order("enrollments.id DESC").
		Find(&enrollments).Error
	return enrollments, err
}

func (r *EnrollmentRepository) UpdateCompletedChapters(id uint, chapters []int) error {
	return r.DB.Model(&model.Enrollment{}).
		Where("id = ?", id).
		Update("completed_chapters", datatypes.NewJSONSlice(chapters)).Error
}
