package echoapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interamericana/registro/core/annotation"
	"github.com/interamericana/registro/core/user"
)

func Test_annotationApi_create(t *testing.T) {
	app := setup(t)

	teacher := createUser(t, app.userRepo, "Ana Prof", "anaprof", "ana@colegio.edu", "", user.RoleTeacher, true)
	grd := createGrade(t, app.schoolRepo, 5, "a", time.Now().Year())
	std := createStudent(t, app.schoolRepo, "EST-001", "Beto Bravo", grd.ID)

	token := getToken(t, teacher)
	path := "/v1/students/" + strconv.FormatInt(std.ID, 10) + "/annotations"

	tests := []httpTest{
		{name: "auth required", body: []byte(`{"annotation_type":"leve"}`), wantCode: http.StatusUnauthorized},
		{
			name: "unknown type rejected", token: token,
			body: []byte(`{"annotation_type":"gravisima"}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "off-scale points rejected", token: token,
			body: []byte(`{"annotation_type":"leve","points":7}`), wantCode: http.StatusBadRequest,
		},
		{
			name: "points defaulted from type", token: token,
			body: []byte(`{"annotation_type":"muy_grave","description":"pelea en el patio"}`),
			wantCode: http.StatusCreated, extra: 20,
		},
		{
			name: "explicit points kept", token: token,
			body: []byte(`{"annotation_type":"leve","points":5}`), wantCode: http.StatusCreated, extra: 5,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())

			if tt.wantCode == http.StatusCreated {
				var ann annotation.Annotation
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ann))
				assert.Equal(t, std.ID, ann.StudentID)
				assert.Equal(t, teacher.ID, ann.TeacherID)
				assert.Equal(t, teacher.FullName, ann.TeacherName)
				assert.Equal(t, tt.extra.(int), ann.Points)
			}
		})
	}
}

func Test_annotationApi_listAndConduct(t *testing.T) {
	app := setup(t)

	teacher := createUser(t, app.userRepo, "Ana Prof", "anaprof", "ana@colegio.edu", "", user.RoleTeacher, true)
	grd := createGrade(t, app.schoolRepo, 5, "a", time.Now().Year())
	std := createStudent(t, app.schoolRepo, "EST-001", "Beto Bravo", grd.ID)

	createAnnotation(t, app.annotationRepo, std.ID, teacher.ID, annotation.TypeLeve, 5)
	createAnnotation(t, app.annotationRepo, std.ID, teacher.ID, annotation.TypeGrave, 10)

	token := getToken(t, teacher)
	base := "/v1/students/" + strconv.FormatInt(std.ID, 10)

	req, rec := newAuthRequest(http.MethodGet, base+"/annotations", token)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var anns []annotation.Annotation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &anns))
	require.Len(t, anns, 2)
	assert.Equal(t, teacher.FullName, anns[0].TeacherName)

	req, rec = newAuthRequest(http.MethodGet, base+"/conduct", token)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var summary annotation.ConductSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, 2, summary.Annotations)
	assert.Equal(t, 15, summary.Deducted)
	assert.Equal(t, 0, summary.Score)
	assert.Equal(t, annotation.TierCritical, summary.Tier)
}

func Test_annotationApi_update(t *testing.T) {
	app := setup(t)

	admin := createUser(t, app.userRepo, "Admin", "admin", "admin@colegio.edu", "", user.RoleAdmin, true)
	teacher := createUser(t, app.userRepo, "Ana Prof", "anaprof", "ana@colegio.edu", "", user.RoleTeacher, true)
	grd := createGrade(t, app.schoolRepo, 5, "a", time.Now().Year())
	std := createStudent(t, app.schoolRepo, "EST-001", "Beto Bravo", grd.ID)
	ann := createAnnotation(t, app.annotationRepo, std.ID, teacher.ID, annotation.TypeLeve, 5)

	path := "/v1/annotations/" + strconv.FormatInt(ann.ID, 10)
	body := []byte(`{"annotation_type":"grave","points":10,"description":"corregido"}`)

	// edits are admin only
	req, rec := newAuthRequest(http.MethodPut, path, getToken(t, teacher), body)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req, rec = newAuthRequest(http.MethodPut, path, getToken(t, admin), body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var got annotation.Annotation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, annotation.TypeGrave, got.Type)
	assert.Equal(t, 10, got.Points)
	assert.Equal(t, "corregido", got.Description)

	req, rec = newAuthRequest(http.MethodPut, "/v1/annotations/999", getToken(t, admin), body)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
