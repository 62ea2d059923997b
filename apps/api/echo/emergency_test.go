package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interamericana/registro/core/emergency"
	"github.com/interamericana/registro/core/user"
)

func Test_emergencyApi_create(t *testing.T) {
	app := setup(t)

	teacher := createUser(t, app.userRepo, "Ana Prof", "anaprof", "ana@colegio.edu", "", user.RoleTeacher, true)
	coord := createUser(t, app.userRepo, "Coord", "coord", "coord@colegio.edu", "", user.RoleCoordinator, true)
	grd := createGrade(t, app.schoolRepo, 5, "a", time.Now().Year())

	gradeID := strconv.FormatInt(grd.ID, 10)

	tests := []httpTest{
		{name: "auth required", body: []byte(`{"grade_id":` + gradeID + `}`), wantCode: http.StatusUnauthorized},
		{
			name: "teachers only", token: getToken(t, coord),
			body: []byte(`{"grade_id":` + gradeID + `}`), wantCode: http.StatusForbidden,
		},
		{
			name: "unknown grade", token: getToken(t, teacher),
			body: []byte(`{"grade_id":999}`), wantCode: http.StatusNotFound,
		},
		{
			name: "message defaults", token: getToken(t, teacher),
			body: []byte(`{"grade_id":` + gradeID + `}`), wantCode: http.StatusCreated, extra: emergency.DefaultMessage,
		},
		{
			name: "explicit message kept", token: getToken(t, teacher),
			body: []byte(`{"grade_id":` + gradeID + `,"message":"pelea en el aula"}`),
			wantCode: http.StatusCreated, extra: "pelea en el aula",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/v1/emergencies", tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantCode == http.StatusCreated {
				var got emergency.Request
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
				assert.Equal(t, emergency.StatusPending, got.Status)
				assert.Equal(t, tt.extra.(string), got.Message)
				assert.Equal(t, teacher.FullName, got.TeacherName)
				assert.Equal(t, grd.GradeNumber, got.GradeNumber)
				assert.Equal(t, grd.Section, got.Section)
			}
		})
	}
}

func Test_emergencyApi_lifecycle(t *testing.T) {
	app := setup(t)

	teacher := createUser(t, app.userRepo, "Ana Prof", "anaprof", "ana@colegio.edu", "", user.RoleTeacher, true)
	coord := createUser(t, app.userRepo, "Coord", "coord", "coord@colegio.edu", "", user.RoleCoordinator, true)
	grd := createGrade(t, app.schoolRepo, 5, "a", time.Now().Year())

	// raise a request as the teacher
	req, rec := newAuthRequest(http.MethodPost, "/v1/emergencies", getToken(t, teacher),
		[]byte(`{"grade_id":`+strconv.FormatInt(grd.ID, 10)+`}`))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created emergency.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	coordToken := getToken(t, coord)
	statusPath := "/v1/emergencies/" + strconv.FormatInt(created.ID, 10) + "/status"

	// teachers may not transition
	req, rec = newAuthRequest(http.MethodPatch, statusPath, getToken(t, teacher), []byte(`{"status":"in_progress"}`))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// unknown status rejected
	req, rec = newAuthRequest(http.MethodPatch, statusPath, coordToken, []byte(`{"status":"archived"}`))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// pending -> in_progress
	req, rec = newAuthRequest(http.MethodPatch, statusPath, coordToken, []byte(`{"status":"in_progress"}`))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// in_progress -> pending is illegal
	req, rec = newAuthRequest(http.MethodPatch, statusPath, coordToken, []byte(`{"status":"pending"}`))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// in_progress -> resolved with notes
	req, rec = newAuthRequest(http.MethodPatch, statusPath, coordToken,
		[]byte(`{"status":"resolved","resolution_notes":"todo en orden"}`))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resolved emergency.Request
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resolved))
	assert.Equal(t, emergency.StatusResolved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	assert.Equal(t, "todo en orden", resolved.ResolutionNotes)

	// resolved is terminal
	req, rec = newAuthRequest(http.MethodPatch, statusPath, coordToken, []byte(`{"status":"in_progress"}`))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func Test_emergencyApi_query(t *testing.T) {
	app := setup(t)

	teacher := createUser(t, app.userRepo, "Ana Prof", "anaprof", "ana@colegio.edu", "", user.RoleTeacher, true)
	coord := createUser(t, app.userRepo, "Coord", "coord", "coord@colegio.edu", "", user.RoleCoordinator, true)
	grd := createGrade(t, app.schoolRepo, 5, "a", time.Now().Year())

	teacherToken := getToken(t, teacher)
	for range [3]struct{}{} {
		req, rec := newAuthRequest(http.MethodPost, "/v1/emergencies", teacherToken,
			[]byte(`{"grade_id":`+strconv.FormatInt(grd.ID, 10)+`}`))
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	coordToken := getToken(t, coord)

	list := func(path string) []emergency.Request {
		req, rec := newAuthRequest(http.MethodGet, path, coordToken)
		app.server.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var reqs []emergency.Request
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reqs))
		return reqs
	}

	assert.Len(t, list("/v1/emergencies"), 3)
	assert.Len(t, list("/v1/emergencies?status=pending"), 3)
	assert.Len(t, list("/v1/emergencies?status=resolved"), 0)
	assert.Len(t, list("/v1/emergencies?status=all"), 3)

	// bogus status filter is a validation error
	req, rec := newAuthRequest(http.MethodGet, "/v1/emergencies?status=bogus", coordToken)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
