package tests

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedCourse is the standard fixture: a published course with a learning
// material in lesson 1 and a single-choice task in lesson 2.
type gatedCourse struct {
	slug               string
	courseID           float64
	learningMaterialID float64
	taskMaterialID     float64
}

func buildGatedCourse(t *testing.T, adminToken, slug string) gatedCourse {
	t.Helper()

	resp, result := doRequest(t, "POST", "/api/admin/courses", adminToken, map[string]interface{}{
		"title":        "Course " + slug,
		"slug":         slug,
		"summary":      "Fixture course",
		"is_published": true,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	courseID := result["course"].(map[string]interface{})["ID"].(float64)
	coursePath := fmt.Sprintf("/api/admin/courses/%.0f/lessons", courseID)

	resp, result = doRequest(t, "POST", coursePath, adminToken, map[string]interface{}{
		"title": "Lesson One",
		"slug":  "lesson-one",
		"order": 1,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	lesson1ID := result["lesson"].(map[string]interface{})["ID"].(float64)

	resp, result = doRequest(t, "POST", coursePath, adminToken, map[string]interface{}{
		"title": "Lesson Two",
		"slug":  "lesson-two",
		"order": 2,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	lesson2ID := result["lesson"].(map[string]interface{})["ID"].(float64)

	resp, result = doRequest(t, "POST", fmt.Sprintf("/api/admin/lessons/%.0f/materials", lesson1ID), adminToken, map[string]interface{}{
		"title":         "Reading",
		"material_type": "learning",
		"content":       "Read this first.",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	learningID := result["material"].(map[string]interface{})["ID"].(float64)

	resp, result = doRequest(t, "POST", fmt.Sprintf("/api/admin/lessons/%.0f/materials", lesson2ID), adminToken, map[string]interface{}{
		"title":         "Quiz",
		"material_type": "task",
		"question_type": "single_choice",
		"question_payload": map[string]interface{}{
			"question":       "Pick the right one",
			"choices":        []string{"right", "wrong"},
			"correct_answer": "right",
		},
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	taskID := result["material"].(map[string]interface{})["ID"].(float64)

	return gatedCourse{
		slug:               slug,
		courseID:           courseID,
		learningMaterialID: learningID,
		taskMaterialID:     taskID,
	}
}

// acceptEnrollment enrolls the student and has the admin accept it.
func acceptEnrollment(t *testing.T, studentToken, adminToken, slug string) {
	t.Helper()

	resp, _ := doRequest(t, "POST", "/api/courses/"+slug+"/enroll", studentToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, result := doRequest(t, "GET", "/api/admin/enrollments?status=pending", adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	enrollments := result["enrollments"].([]interface{})
	require.NotEmpty(t, enrollments)
	var enrollmentID float64
	for _, e := range enrollments {
		entry := e.(map[string]interface{})
		if entry["course_slug"] == slug {
			enrollmentID = entry["id"].(float64)
		}
	}
	require.NotZero(t, enrollmentID)

	resp, _ = doRequest(t, "POST", fmt.Sprintf("/api/admin/enrollments/%.0f/accept", enrollmentID), adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestCourseListOnlyPublished(t *testing.T) {
	_, adminToken := createUser(t, false)

	doRequest(t, "POST", "/api/admin/courses", adminToken, map[string]interface{}{
		"title":        "Hidden Draft",
		"slug":         "hidden-draft",
		"is_published": false,
	})
	doRequest(t, "POST", "/api/admin/courses", adminToken, map[string]interface{}{
		"title":        "Visible Course",
		"slug":         "visible-course",
		"is_published": true,
	})

	resp, courses := doRequestList(t, "GET", "/api/courses", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	for _, c := range courses {
		assert.NotEqual(t, "hidden-draft", c.(map[string]interface{})["slug"])
	}
}

func TestCourseListSearch(t *testing.T) {
	_, adminToken := createUser(t, false)

	doRequest(t, "POST", "/api/admin/courses", adminToken, map[string]interface{}{
		"title":        "Quantum Basics",
		"slug":         "quantum-basics",
		"is_published": true,
	})

	resp, courses := doRequestList(t, "GET", "/api/courses?q=Quantum", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Len(t, courses, 1)
	assert.Equal(t, "quantum-basics", courses[0].(map[string]interface{})["slug"])
}

func TestCourseDetailNotFound(t *testing.T) {
	resp, _ := doRequest(t, "GET", "/api/courses/no-such-course", "", nil)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestCourseDetailAnonymous(t *testing.T) {
	_, adminToken := createUser(t, false)
	course := buildGatedCourse(t, adminToken, "anon-detail")

	resp, result := doRequest(t, "GET", "/api/courses/"+course.slug, "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Nil(t, result["enrollment"])

	lessons := result["lessons"].([]interface{})
	assert.Len(t, lessons, 2)
	for _, l := range lessons {
		lesson := l.(map[string]interface{})
		assert.Equal(t, false, lesson["completed"])
		assert.Equal(t, false, lesson["available"])
	}
}

func TestCourseDetailAvailabilityMap(t *testing.T) {
	_, adminToken := createUser(t, false)
	_, studentToken := createUser(t, true)
	course := buildGatedCourse(t, adminToken, "availability-map")

	resp, result := doRequest(t, "GET", "/api/courses/"+course.slug, studentToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	lessons := result["lessons"].([]interface{})
	first := lessons[0].(map[string]interface{})
	second := lessons[1].(map[string]interface{})

	// Nothing completed yet: only the first lesson is reachable
	assert.Equal(t, true, first["available"])
	assert.Equal(t, false, first["completed"])
	assert.Equal(t, false, second["available"])
}

func TestEnrollCreatesPending(t *testing.T) {
	_, adminToken := createUser(t, false)
	_, studentToken := createUser(t, true)
	course := buildGatedCourse(t, adminToken, "enroll-pending")

	resp, result := doRequest(t, "POST", "/api/courses/"+course.slug+"/enroll", studentToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Enrollment request submitted", result["message"])
	assert.Equal(t, "pending", result["enrollment"].(map[string]interface{})["status"])
}

func TestEnrollTwiceKeepsStatus(t *testing.T) {
	_, adminToken := createUser(t, false)
	_, studentToken := createUser(t, true)
	course := buildGatedCourse(t, adminToken, "enroll-twice")

	doRequest(t, "POST", "/api/courses/"+course.slug+"/enroll", studentToken, nil)
	resp, result := doRequest(t, "POST", "/api/courses/"+course.slug+"/enroll", studentToken, nil)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "Your enrollment request is already pending or accepted", result["message"])
}

func TestRejectedEnrollmentCanRequestAgain(t *testing.T) {
	_, adminToken := createUser(t, false)
	_, studentToken := createUser(t, true)
	course := buildGatedCourse(t, adminToken, "enroll-rerequest")

	doRequest(t, "POST", "/api/courses/"+course.slug+"/enroll", studentToken, nil)

	_, result := doRequest(t, "GET", "/api/admin/enrollments?status=pending", adminToken, nil)
	var enrollmentID float64
	var firstRequestedAt interface{}
	for _, e := range result["enrollments"].([]interface{}) {
		entry := e.(map[string]interface{})
		if entry["course_slug"] == course.slug {
			enrollmentID = entry["id"].(float64)
			firstRequestedAt = entry["requested_at"]
		}
	}
	require.NotZero(t, enrollmentID)

	resp, _ := doRequest(t, "POST", fmt.Sprintf("/api/admin/enrollments/%.0f/reject", enrollmentID), adminToken, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, result = doRequest(t, "POST", "/api/courses/"+course.slug+"/enroll", studentToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "pending", result["enrollment"].(map[string]interface{})["status"])

	// A re-request surfaces at the top of the review queue again
	_, result = doRequest(t, "GET", "/api/admin/enrollments?status=pending", adminToken, nil)
	for _, e := range result["enrollments"].([]interface{}) {
		entry := e.(map[string]interface{})
		if entry["id"].(float64) == enrollmentID {
			assert.NotEqual(t, firstRequestedAt, entry["requested_at"])
			assert.Nil(t, entry["answered_at"])
		}
	}
}

func TestEnrollRequiresAuth(t *testing.T) {
	_, adminToken := createUser(t, false)
	course := buildGatedCourse(t, adminToken, "enroll-noauth")

	resp, _ := doRequest(t, "POST", "/api/courses/"+course.slug+"/enroll", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
