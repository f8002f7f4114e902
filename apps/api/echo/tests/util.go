package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	. "github.com/gjb2048/gradereviews/apps/api/echo"
	"github.com/gjb2048/gradereviews/core"
	"github.com/gjb2048/gradereviews/core/gradereview"
	"github.com/gjb2048/gradereviews/services/email"
	"github.com/gjb2048/gradereviews/services/events"
	"github.com/gjb2048/gradereviews/storage/database/dummy"
	"github.com/gjb2048/gradereviews/tests"
)

type testApp struct {
	Server
	db  *dummydb.DB
	reg *prometheus.Registry
}

func setup(t *testing.T) testApp {
	conf := testutil.Config()
	logger := &testutil.Logger{}
	reg := prometheus.NewRegistry()

	// set up DB & repos
	db := testutil.OpenDB(t)
	repo := dummydb.NewRepository(db)

	// set up services
	translator := core.NewTranslator()
	reviewSvc := gradereview.NewService(gradereview.Deps{
		Submissions:  repo,
		Assignments:  repo,
		UserMappings: repo,
		Comments:     repo,
		Users:        repo,
		Capabilities: dummydb.NewCapabilityChecker(db),
		Events:       eventsvc.NewLogSink(conf.GradeReviews.HostURL, logger, reg),
		MailSvc:      emailsvc.NewConsoleServiceMock(conf, logger),
		Logger:       logger,
		Validate:     core.NewValidator(translator),
	}, conf)

	// set up server
	return testApp{
		Server: NewServer(ServerDeps{
			Conf:       conf,
			Logger:     logger,
			ReviewSvc:  reviewSvc,
			Translator: translator,
			Registry:   reg,
		}),
		db:  db,
		reg: reg,
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
	viewer   int
	wantCode int
	wantData []byte
}

func newViewerRequest(method, path string, viewer int, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if viewer != 0 {
		req.Header.Set("X-Gradereviews-User", strconv.Itoa(viewer))
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func reviewsPath(contextID, itemID int, suffix ...string) string {
	p := "/v1/contexts/" + strconv.Itoa(contextID) + "/submissions/" + strconv.Itoa(itemID) + "/reviews"
	for _, s := range suffix {
		p += s
	}
	return p
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
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
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func decodeComments(t *testing.T, rec *httptest.ResponseRecorder) []gradereview.Comment {
	var comments []gradereview.Comment
	if err := json.Unmarshal(rec.Body.Bytes(), &comments); err != nil {
		t.Fatalf("decodeComments() failed: %v; body %s", err, rec.Body.String())
	}
	return comments
}
