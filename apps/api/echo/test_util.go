package echoapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/interamericana/registro/core"
	"github.com/interamericana/registro/core/annotation"
	"github.com/interamericana/registro/core/emergency"
	"github.com/interamericana/registro/core/school"
	"github.com/interamericana/registro/core/user"
	"github.com/interamericana/registro/services/broadcast"
	emailsvc "github.com/interamericana/registro/services/email"
	logsvc "github.com/interamericana/registro/services/logger"
	"github.com/interamericana/registro/storage/database/dummy"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type testApp struct {
	server Server
	hub    *broadcast.Hub

	userRepo       user.Repository
	schoolRepo     school.Repository
	annotationRepo annotation.Repository
	emergencyRepo  emergency.Repository
}

func setup(t *testing.T) *testApp {
	core.Conf.Debug = false
	core.Conf.TestMode = true

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("setup() failed: %v", err)
	}

	userRepo := dummydb.NewUserRepository(db)
	schoolRepo := dummydb.NewSchoolRepository(db)
	annotationRepo := dummydb.NewAnnotationRepository(db)
	emergencyRepo := dummydb.NewEmergencyRepository(db)

	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	hub := broadcast.NewHub(logger)
	go hub.Run()
	t.Cleanup(hub.Stop)

	mailSvc := emailsvc.NewConsoleServiceMock()
	userSvc := user.NewServiceMock(userRepo, mailSvc)
	schoolSvc := school.NewService(schoolRepo)
	annotationSvc := annotation.NewService(annotationRepo, hub)
	emergencySvc := emergency.NewService(emergencyRepo, schoolRepo, hub)

	server := NewServer(&Options{
		DisableReqLogs: true,
		Logger:         logger,
		UserSvc:        userSvc,
		SchoolSvc:      schoolSvc,
		AnnotationSvc:  annotationSvc,
		EmergencySvc:   emergencySvc,
		Hub:            hub,
	})
	return &testApp{
		server:         server,
		hub:            hub,
		userRepo:       userRepo,
		schoolRepo:     schoolRepo,
		annotationRepo: annotationRepo,
		emergencyRepo:  emergencyRepo,
	}
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := GetUserClaims(usr)
	token, err := GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func createUser(t *testing.T, repo user.Repository, fullName, uname, email, pwd, role string, isActive bool) user.User {
	usr := user.User{
		Username:  uname,
		Email:     email,
		FullName:  fullName,
		Role:      role,
		IsActive:  isActive,
		CreatedAt: time.Now().UTC(),
	}
	if pwd == "" {
		pwd = "LeP@ssword"
	}
	if err := usr.SetPassword(pwd); err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func createGrade(t *testing.T, repo school.Repository, number int, section string, year int) school.Grade {
	grd, err := repo.CreateGrade(context.Background(), school.Grade{
		GradeNumber: number,
		Section:     section,
		Year:        year,
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createGrade() failed: %v", err)
	}
	return grd
}

func createStudent(t *testing.T, repo school.Repository, studentID, fullName string, gradeID int64) school.Student {
	std, err := repo.CreateStudent(context.Background(), school.Student{
		StudentID: studentID,
		FullName:  fullName,
		GradeID:   gradeID,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createStudent() failed: %v", err)
	}
	return std
}

func createAnnotation(t *testing.T, repo annotation.Repository, studentID, teacherID int64, typ string, points int) annotation.Annotation {
	ann, err := repo.CreateAnnotation(context.Background(), annotation.Annotation{
		StudentID: studentID,
		TeacherID: teacherID,
		Type:      typ,
		Points:    points,
		Date:      time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("createAnnotation() failed: %v", err)
	}
	return ann
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
