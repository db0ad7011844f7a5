package service

import (
	"ai_course_backend/internal/model"
	"ai_course_backend/internal/repository"
	"ai_course_backend/internal/util"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// EnrolledCourse 报名列表项，字段名沿用前端约定
type EnrolledCourse struct {
	Courses      *model.Course     `json:"courses"`
	EnrollCourse *model.Enrollment `json:"enrollCourse"`
}

type EnrollmentService struct {
	EnrollmentRepo *repository.EnrollmentRepository
	CourseRepo     *repository.CourseRepository
}

func NewEnrollmentService(enrollmentRepo *repository.EnrollmentRepository, courseRepo *repository.CourseRepository) *EnrollmentService {
	return &EnrollmentService{
		EnrollmentRepo: enrollmentRepo,
		CourseRepo:     courseRepo,
	}
}

// Enroll 先查后插；已报名时返回已有记录和 ErrAlreadyEnrolled
func (s *EnrollmentService) Enroll(courseCid, userEmail string) (*model.Enrollment, error) {
	existing, err := s.EnrollmentRepo.Find(courseCid, userEmail)
	if err == nil {
		return existing, util.ErrAlreadyEnrolled
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find enrollment: %w", err)
	}

	enrollment := &model.Enrollment{CourseCid: courseCid, UserEmail: userEmail}
	if err := s.EnrollmentRepo.Create(enrollment); err != nil {
		if util.IsForeignKeyViolation(err) {
			return nil, s.missingReference(courseCid)
		}
		return nil, fmt.Errorf("create enrollment: %w", err)
	}
	return enrollment, nil
}

// missingReference 外键冲突时区分课程不存在与用户未同步
func (s *EnrollmentService) missingReference(courseCid string) error {
	_, err := s.CourseRepo.FindByCid(courseCid)
	switch {
	case err == nil:
		return util.ErrUserNotFound
	case errors.Is(err, gorm.ErrRecordNotFound):
		return util.ErrCourseNotFound
	default:
		return fmt.Errorf("find course: %w", err)
	}
}

func (s *EnrollmentService) ListEnrolled(userEmail string) ([]EnrolledCourse, error) {
	enrollments, err := s.EnrollmentRepo.ListByUserWithCourse(userEmail)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}

	items := make([]EnrolledCourse, 0, len(enrollments))
	for i := range enrollments {
		e := &enrollments[i]
		items = append(items, EnrolledCourse{Courses: e.Course, EnrollCourse: e})
	}
	return items, nil
}

// CompleteChapter 记录已完成章节，下标需落在课程章节范围内
func (s *EnrollmentService) CompleteChapter(courseCid, userEmail string, chapterIndex int) (*model.Enrollment, error) {
	enrollment, err := s.EnrollmentRepo.Find(courseCid, userEmail)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrEnrollmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find enrollment: %w", err)
	}

	course, err := s.CourseRepo.FindByCid(courseCid)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("find course: %w", err)
	}
	if err == nil && course.ChapterCount > 0 && chapterIndex >= course.ChapterCount {
		return nil, util.ErrChapterOutOfRange
	}
	if chapterIndex < 0 {
		return nil, util.ErrChapterOutOfRange
	}

	if enrollment.MarkChapterCompleted(chapterIndex) {
		if err := s.EnrollmentRepo.UpdateCompletedChapters(enrollment.ID, enrollment.CompletedChapters); err != nil {
			return nil, fmt.Errorf("update progress: %w", err)
		}
	}
	return enrollment, nil
}
