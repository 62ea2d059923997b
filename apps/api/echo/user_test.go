package echoapi

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/interamericana/registro/core/user"
	emailsvc "github.com/interamericana/registro/services/email"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	teacher := createUser(t, app.userRepo, "Ana Prof", "anaprof", "ana@colegio.edu", "s3cr3t0", user.RoleTeacher, true)
	_ = createUser(t, app.userRepo, "Ex Prof", "exprof", "ex@colegio.edu", "s3cr3t0", user.RoleTeacher, false)

	tests := []httpTest{
		{
			name: "empty body", body: []byte(`{}`), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "username is a required field", "password": "password is a required field"}),
		},
		{
			name: "unknown user", body: []byte(`{"username":"nadie","password":"s3cr3t0"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: []byte(`{"username":"anaprof","password":"nope!!"}`),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: []byte(`{"username":"exprof","password":"s3cr3t0"}`),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{name: "login by username", body: []byte(`{"username":"anaprof","password":"s3cr3t0"}`), wantCode: http.StatusOK},
		{name: "login by email", body: []byte(`{"username":"ana@colegio.edu","password":"s3cr3t0"}`), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusOK {
				require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
				var res LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
				assert.NotEmpty(t, res.Token)

				claims, err := parseToken(res.Token)
				require.NoError(t, err)
				assert.Equal(t, teacher.ID, claims.UserID())
				assert.Equal(t, user.RoleTeacher, claims.Role)
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_me(t *testing.T) {
	app := setup(t)
	admin := createUser(t, app.userRepo, "Admin", "admin", "admin@colegio.edu", "", user.RoleAdmin, true)

	req, rec := newRequest(http.MethodGet, "/v1/users/me")
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req, rec = newAuthRequest(http.MethodGet, "/v1/users/me", getToken(t, admin))
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	var got user.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, admin.ID, got.ID)
	assert.Equal(t, admin.Username, got.Username)
}

func Test_userApi_teacherManagement(t *testing.T) {
	app := setup(t)

	admin := createUser(t, app.userRepo, "Admin", "admin", "admin@colegio.edu", "", user.RoleAdmin, true)
	coord := createUser(t, app.userRepo, "Coord", "coord", "coord@colegio.edu", "", user.RoleCoordinator, true)
	teacher := createUser(t, app.userRepo, "Prof Uno", "profuno", "uno@colegio.edu", "", user.RoleTeacher, true)

	adminToken := getToken(t, admin)
	coordToken := getToken(t, coord)
	teacherToken := getToken(t, teacher)

	newTeacher := []byte(`{"username":"profdos","email":"dos@colegio.edu","full_name":"Prof Dos","password":"s3cr3t0"}`)

	tests := []httpTest{
		{
			name: "auth required", method: http.MethodGet, path: "/v1/users/teachers",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "teachers cannot manage teachers", method: http.MethodGet, path: "/v1/users/teachers", token: teacherToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "coordinator lists teachers", method: http.MethodGet, path: "/v1/users/teachers", token: coordToken,
			wantCode: http.StatusOK, wantData: marchallList(t, teacher),
		},
		{
			name: "coordinator creates teacher", method: http.MethodPost, path: "/v1/users/teachers",
			body: newTeacher, token: coordToken, wantCode: http.StatusCreated,
		},
		{
			name: "duplicate username rejected", method: http.MethodPost, path: "/v1/users/teachers",
			body: newTeacher, token: adminToken, wantCode: http.StatusBadRequest,
		},
		{
			name: "coordinators endpoint is admin only", method: http.MethodGet, path: "/v1/users/coordinators", token: coordToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "admin lists coordinators", method: http.MethodGet, path: "/v1/users/coordinators", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, coord),
		},
		{
			name: "admin deactivates teacher", method: http.MethodDelete,
			path: "/v1/users/teachers/" + strconv.FormatInt(teacher.ID, 10), token: adminToken, wantCode: http.StatusNoContent,
		},
		{
			name: "deactivate unknown id", method: http.MethodDelete, path: "/v1/users/teachers/99999",
			token: adminToken, wantCode: http.StatusNotFound,
		},
		{
			name: "cannot deactivate a coordinator via teachers endpoint", method: http.MethodDelete,
			path: "/v1/users/teachers/" + strconv.FormatInt(coord.ID, 10), token: adminToken, wantCode: http.StatusNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	// soft delete: the record survives, deactivated
	got, err := app.userRepo.GetUserByID(context.Background(), teacher.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func Test_userApi_passwordReset(t *testing.T) {
	app := setup(t)
	emailsvc.ClearSentMessages()

	usr := createUser(t, app.userRepo, "Prof", "prof", "prof@colegio.edu", "0ldPwd!", user.RoleTeacher, true)

	// request: unknown emails get the same response as known ones
	for _, email := range []string{"prof@colegio.edu", "nadie@colegio.edu"} {
		req, rec := newRequest(http.MethodPost, "/v1/users/password-reset", []byte(`{"email":"`+email+`"}`))
		app.server.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	require.Len(t, emailsvc.SentMessages, 1)

	// pull uid & token out of the mailed link
	re := regexp.MustCompile(`uid=([^&\s]+)&token=([^&\s]+)`)
	match := re.FindStringSubmatch(emailsvc.SentMessages[0].Body)
	require.Len(t, match, 3)
	uid, token := match[1], match[2]

	// confirm with a mismatched password pair
	body := []byte(`{"uid":"` + uid + `","token":"` + token + `","password":"NewPwd!1","password_confirm":"Other!!1"}`)
	req, rec := newRequest(http.MethodPost, "/v1/users/password-reset-confirm", body)
	app.server.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// confirm properly
	body = []byte(`{"uid":"` + uid + `","token":"` + token + `","password":"NewPwd!1","password_confirm":"NewPwd!1"}`)
	req, rec = newRequest(http.MethodPost, "/v1/users/password-reset-confirm", body)
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got, err := app.userRepo.GetUserByID(context.Background(), usr.ID)
	require.NoError(t, err)
	assert.NoError(t, got.CheckPassword("NewPwd!1"))
	assert.Error(t, got.CheckPassword("0ldPwd!"))
}

func Test_userApi_tokenRefresh(t *testing.T) {
	app := setup(t)
	usr := createUser(t, app.userRepo, "Prof", "prof", "prof@colegio.edu", "", user.RoleTeacher, true)

	req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", getToken(t, usr))
	app.server.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res LoginResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	claims, err := parseToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, usr.ID, claims.UserID())
}
