package repository

import (
	"testing"

	"ai_course_backend/internal/model"
	"ai_course_backend/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

func TestUserRepository(t *testing.T) {
	repo := NewUserRepository(testutil.NewTestDB(t))

	require.NoError(t, repo.Create(&model.User{Name: "Ada", Email: "ada@example.com"}))

	user, err := repo.FindByEmail("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada", user.Name)

	_, err = repo.FindByEmail("nobody@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, repo.UpdateSubscription("ada@example.com", "sub_123"))
	user, err = repo.FindByEmail("ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "sub_123", user.SubscriptionID)

	assert.ErrorIs(t, repo.UpdateSubscription("nobody@example.com", "x"), gorm.ErrRecordNotFound)

	count, err := repo.Count()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}

func TestCourseRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	repo := NewCourseRepository(db)

	first := &model.Course{Cid: "c1", Name: "Go", Level: "Beginner", ChapterCount: 2, OwnerEmail: "ada@example.com",
		CourseOutlineJSON: datatypes.JSON(`{"course":{"name":"Go"}}`), Status: model.CourseCreated}
	second := &model.Course{Cid: "c2", Name: "Rust", Level: "Advanced", ChapterCount: 1, OwnerEmail: "ada@example.com",
		CourseOutlineJSON: datatypes.JSON(`{"course":{"name":"Rust"}}`), Status: model.CourseCreated}
	require.NoError(t, repo.Create(first))
	require.NoError(t, repo.Create(second))

	courses, err := repo.FindByOwner("ada@example.com")
	require.NoError(t, err)
	require.Len(t, courses, 2)
	assert.Equal(t, "c2", courses[0].Cid)

	found, err := repo.FindByOwnerAndName("ada@example.com", "Go")
	require.NoError(t, err)
	assert.Equal(t, "c1", found.Cid)

	require.NoError(t, repo.UpdateContent("c1", datatypes.JSON(`{"chapters":[]}`), "https://img/banner.png"))
	updated, err := repo.FindByCid("c1")
	require.NoError(t, err)
	assert.True(t, updated.HasContent())
	assert.Equal(t, "https://img/banner.png", updated.BannerImageURL)
	assert.JSONEq(t, `{"chapters":[]}`, string(updated.CourseContentJSON))

	// 空 banner 不覆盖已有值
	require.NoError(t, repo.UpdateContent("c1", datatypes.JSON(`{"chapters":[1]}`), ""))
	updated, err = repo.FindByCid("c1")
	require.NoError(t, err)
	assert.Equal(t, "https://img/banner.png", updated.BannerImageURL)

	assert.ErrorIs(t, repo.UpdateContent("missing", datatypes.JSON(`{}`), ""), gorm.ErrRecordNotFound)
}

func TestEnrollmentRepository(t *testing.T) {
	db := testutil.NewTestDB(t)
	courses := NewCourseRepository(db)
	repo := NewEnrollmentRepository(db)

	require.NoError(t, courses.Create(&model.Course{Cid: "c1", Name: "Go", Level: "Beginner", ChapterCount: 1,
		OwnerEmail: "owner@example.com", CourseOutlineJSON: datatypes.JSON(`{}`)}))
	require.NoError(t, courses.Create(&model.Course{Cid: "c2", Name: "SQL", Level: "Beginner", ChapterCount: 1,
		OwnerEmail: "owner@example.com", CourseOutlineJSON: datatypes.JSON(`{}`)}))

	require.NoError(t, repo.Create(&model.Enrollment{CourseCid: "c1", UserEmail: "ada@example.com"}))
	require.NoError(t, repo.Create(&model.Enrollment{CourseCid: "c2", UserEmail: "ada@example.com"}))
	// 课程不存在的报名不出现在列表里
	require.NoError(t, repo.Create(&model.Enrollment{CourseCid: "gone", UserEmail: "ada@example.com"}))

	enrollment, err := repo.Find("c1", "ada@example.com")
	require.NoError(t, err)
	assert.Empty(t, enrollment.CompletedChapters)

	list, err := repo.ListByUserWithCourse("ada@example.com")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "c2", list[0].CourseCid)
	require.NotNil(t, list[0].Course)
	assert.Equal(t, "SQL", list[0].Course.Name)

	require.NoError(t, repo.UpdateCompletedChapters(enrollment.ID, []int{0, 2}))
	enrollment, err = repo.Find("c1", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, []int(enrollment.CompletedChapters))

	count, err := repo.Count("c1", "ada@example.com")
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
