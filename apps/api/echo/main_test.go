package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"

	. "github.com/attendly/attendly/apps/api/echo"
	"github.com/attendly/attendly/core"
	"github.com/attendly/attendly/core/course"
	"github.com/attendly/attendly/core/organization"
	"github.com/attendly/attendly/core/rollcall"
	"github.com/attendly/attendly/core/timetable"
	"github.com/attendly/attendly/core/user"
	logsvc "github.com/attendly/attendly/services/logger"
	inmemdb "github.com/attendly/attendly/storage/database/inmem"
	testutil "github.com/attendly/attendly/tests"
)

const (
	testPassword  = testutil.Password
	testPublicKey = "BTestVAPIDPublicKey"
)

var (
	conf      *core.Config
	db        *inmemdb.DB
	app       *Server
	orgRepo   organization.Repository
	orgSvc    *organization.Service
	usrSvc    *user.Service
	courseSvc *course.Service
	ttSvc     *timetable.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	conf = testutil.Config()
	validate, translator := testutil.Validator()

	// set up DB & services
	db = inmemdb.Open()
	orgRepo = inmemdb.NewOrganizationRepository(db)
	orgSvc = organization.NewService(orgRepo, conf)
	usrSvc = user.NewService(inmemdb.NewUserRepository(db), conf)
	courseSvc = course.NewService(inmemdb.NewCourseRepository(db))
	ttSvc = timetable.NewService(inmemdb.NewTimetableRepository(db))
	rcSvc := rollcall.NewService(inmemdb.NewRollcallRepository(db), usrSvc)

	// set up server
	app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf),
		DB:             db,
		Validate:       validate,
		Translator:     translator,
		OrgSvc:         orgSvc,
		UserSvc:        usrSvc,
		CourseSvc:      courseSvc,
		TimetableSvc:   ttSvc,
		RollcallSvc:    rcSvc,
		VAPIDPublicKey: testPublicKey,
		DisableReqLogs: true,
	})

	os.Exit(m.Run())
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

// serve runs tt against the app, checking the response data only if tt.wantData is set.
func serve(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	app.ServeHTTP(rec, req)
	if tt.wantData != nil {
		checkCodeAndData(t, tt, rec)
	} else if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	return rec
}

func runTests(t *testing.T, tests []httpTest) {
	for _, tt := range tests {
		if tt.method == "" {
			tt.method = http.MethodGet
		}
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			serve(t, tt)
		})
	}
}

func getToken(t *testing.T, usr user.User) string {
	token, err := GenerateToken(conf, GetUserClaims(conf, usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj(): %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("json.Unmarshal(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// Fixtures

func createOrg(t *testing.T, name string) organization.Organization {
	return testutil.CreateOrg(t, orgSvc, name)
}

func createUser(t *testing.T, org organization.Organization, uname, role string, isActive bool) user.User {
	return testutil.CreateUser(t, usrSvc, org, uname, role, isActive)
}
