package canvas

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"cnsync/internal/apierr"
)

func TestListCourses_Paginated(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
		assert.Equal(t, "active", r.URL.Query().Get("enrollment_state"))

		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Query().Get("page") {
		case "":
			w.Header().Set("Link", fmt.Sprintf(`<%s/api/v1/courses?page=2&enrollment_state=active>; rel="next", <%s/api/v1/courses?page=2>; rel="last"`, server.URL, server.URL))
			fmt.Fprint(w, `[{"id": 1, "name": "Biology"}, {"id": 2, "name": "Chemistry"}]`)
		case "2":
			fmt.Fprint(w, `[{"id": 3, "name": "Physics"}]`)
		default:
			t.Errorf("unexpected page %q", r.URL.Query().Get("page"))
		}
	}))
	defer server.Close()

	client := New(context.Background(), server.URL, "test-token")
	courses, err := client.ListCourses(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, []Course{
		{ID: 1, Name: "Biology"},
		{ID: 2, Name: "Chemistry"},
		{ID: 3, Name: "Physics"},
	}, courses)
}

func TestListAssignments(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/courses/42/assignments", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `[
			{"id": 100, "name": "Essay", "due_at": "2025-03-15T23:59:00Z", "points_possible": 50, "course_id": 42, "html_url": "https://canvas.example.edu/a/100"},
			{"id": 101, "name": "Reading", "due_at": null, "points_possible": null, "course_id": 42, "html_url": "https://canvas.example.edu/a/101"}
		]`)
	}))
	defer server.Close()

	client := New(context.Background(), server.URL, "test-token")
	assignments, err := client.ListAssignments(context.Background(), 42)

	assert.NoError(t, err)
	assert.Len(t, assignments, 2)

	assert.Equal(t, int64(100), assignments[0].ID)
	assert.Equal(t, "Essay", assignments[0].Name)
	assert.NotNil(t, assignments[0].DueAt)
	assert.Equal(t, 50.0, *assignments[0].PointsPossible)

	assert.Nil(t, assignments[1].DueAt)
	assert.Nil(t, assignments[1].PointsPossible)
}

func TestListAssignments_ErrorClassification(t *testing.T) {
	tests := []struct {
		name   string
		status int
		check  func(t *testing.T, err error)
	}{
		{"unauthorized", http.StatusUnauthorized, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, apierr.ErrAuth)
		}},
		{"not found", http.StatusNotFound, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, apierr.ErrNotFound)
		}},
		{"rate limited", http.StatusTooManyRequests, func(t *testing.T, err error) {
			var rl *apierr.RateLimitError
			assert.ErrorAs(t, err, &rl)
		}},
		{"server error", http.StatusInternalServerError, func(t *testing.T, err error) {
			assert.True(t, apierr.IsTransient(err))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := New(context.Background(), server.URL, "test-token")
			_, err := client.ListAssignments(context.Background(), 1)
			assert.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestListCourses_ConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	server.Close() // refuse connections

	client := New(context.Background(), server.URL, "test-token")
	_, err := client.ListCourses(context.Background())

	assert.Error(t, err)
	assert.True(t, apierr.IsTransient(err))
}

func TestNextLink(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{
			"canvas style",
			`<https://c.example/api/v1/courses?page=2>; rel="next", <https://c.example/api/v1/courses?page=5>; rel="last"`,
			"https://c.example/api/v1/courses?page=2",
		},
		{
			"next absent",
			`<https://c.example/api/v1/courses?page=1>; rel="first", <https://c.example/api/v1/courses?page=1>; rel="last"`,
			"",
		},
		{"empty header", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextLink(tt.header))
		})
	}
}

func TestNextLink_NoInfiniteLoopOnSelfReference(t *testing.T) {
	// Sanity check that a malformed header cannot return itself forever;
	// the pagination loop terminates when the header disappears.
	header := `<>; rel="next"`
	assert.Equal(t, "", nextLink(header))
}

func TestErrorsUnwrap(t *testing.T) {
	err := fmt.Errorf("listing courses: %w", apierr.FromStatus(http.StatusNotFound, ""))
	assert.True(t, errors.Is(err, apierr.ErrNotFound))
}
