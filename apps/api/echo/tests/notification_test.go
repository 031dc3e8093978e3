package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/tmonsalve/aula/core/billing"
	"github.com/tmonsalve/aula/core/notify"
	"github.com/tmonsalve/aula/core/user"
)

func Test_notificationApi(t *testing.T) {
	resetDB(t)

	cashier := createUser(t, "Inés Soto", "ines1", "ines@test.cl", "", []string{user.RoleCashier}, true)
	portal := createUser(t, "Camila Rojas", "camila01", "camila@test.cl", "", []string{user.RoleStudent}, true)
	camila := createStudent(t, "Camila Rojas", portal.ID)

	// two voucher uploads put two records in the cashier's log
	ctx := context.Background()
	for _, n := range []int{1, 2} {
		_, res, err := bilSvc.UploadVoucher(ctx, camila.ID, billing.NewVoucher{
			InstallmentNumber: n,
			DeclaredAmount:    250,
			FilePath:          "vouchers/voucher.png",
		})
		if err != nil {
			t.Fatalf("UploadVoucher(): %v", err)
		}
		if !res.OK() {
			t.Fatalf("UploadVoucher(): delivery failed: %v", res.Errors)
		}
	}

	cashierToken := getToken(t, cashier)

	var ntfs []notify.Notification

	t.Run("Own log, newest first", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", cashierToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &ntfs); err != nil {
			t.Fatalf("json.Unmarshal() failed; err %v", err)
		}
		if len(ntfs) != 2 {
			t.Fatalf("failed! notifications = %v; want 2", len(ntfs))
		}
		for _, n := range ntfs {
			if n.UserID != cashier.ID {
				t.Errorf("failed! user_id = %v; want %v", n.UserID, cashier.ID)
			}
			if n.IsRead {
				t.Error("failed! notification already read")
			}
		}
	})

	t.Run("The student's log is empty", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/notifications", getToken(t, portal))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, []interface{}{}...)}, rec)
	})

	t.Run("Someone else's notification cannot be marked", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications/"+strconv.Itoa(ntfs[0].ID)+"/read", getToken(t, portal))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound)}, rec)
	})

	t.Run("Mark one read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications/"+strconv.Itoa(ntfs[0].ID)+"/read", cashierToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}
	})

	t.Run("Mark all read", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/notifications/read", cashierToken)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("failed! code = %v; data = %v", rec.Code, rec.Body.String())
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/notifications", cashierToken)
		app.ServeHTTP(rec, req)
		var got []notify.Notification
		if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
			t.Fatalf("json.Unmarshal() failed; err %v", err)
		}
		for _, n := range got {
			if !n.IsRead {
				t.Errorf("failed! notification %v still unread", n.ID)
			}
		}
	})
}
