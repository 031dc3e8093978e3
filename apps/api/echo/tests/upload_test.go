package tests

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	echoapi "github.com/tmonsalve/aula/apps/api/echo"
	"github.com/tmonsalve/aula/core/user"
)

func Test_uploadApi_images(t *testing.T) {
	resetDB(t)

	portal := createUser(t, "Camila Rojas", "camila01", "camila@test.cl", "", []string{user.RoleStudent}, true)
	portalToken := getToken(t, portal)

	t.Run("Auth required", func(t *testing.T) {
		req, rec := newUploadRequest(t, http.MethodPost, "/v1/uploads/images", "", "file", pngContent, nil)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)
	})

	t.Run("PDFs are not images", func(t *testing.T) {
		req, rec := newUploadRequest(t, http.MethodPost, "/v1/uploads/images", portalToken, "file", pdfContent, nil)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{
			wantCode: http.StatusUnsupportedMediaType,
			wantData: marchallObj(t, httpErr{Error: "only JPEG and PNG images are accepted"}),
		}, rec)
	})

	t.Run("Image stored under media root", func(t *testing.T) {
		req, rec := newUploadRequest(t, http.MethodPost, "/v1/uploads/images", portalToken, "file", pngContent, nil)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusCreated {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		var resp echoapi.UploadResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("json.Unmarshal() failed; err %v", err)
		}
		if !strings.HasPrefix(resp.Path, "images/") || !strings.HasSuffix(resp.Path, ".png") {
			t.Errorf("failed! path = %v", resp.Path)
		}
		if resp.URL != "/media/"+resp.Path {
			t.Errorf("failed! url = %v", resp.URL)
		}

		// the stored file is served back under /media
		req, rec = newRequest(http.MethodGet, resp.URL)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("failed! media code = %v; data = %v", rec.Code, rec.Body.String())
		}
		if rec.Body.String() != pngContent {
			t.Error("failed! served file does not match the upload")
		}
	})
}
