package tests

import (
	"encoding/json"
	"net/http"
	"strconv"
	"testing"

	"github.com/tmonsalve/aula/core/student"
	"github.com/tmonsalve/aula/core/user"
)

func Test_studentApi_create(t *testing.T) {
	resetDB(t)

	advisor := createUser(t, "Inés Soto", "ines1", "ines@test.cl", "", []string{user.RoleAdvisor}, true)
	portal := createUser(t, "Camila Rojas", "camila01", "camila@test.cl", "", []string{user.RoleStudent}, true)

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Staff required", token: getToken(t, portal),
			body:     marchallObj(t, student.NewStudent{Name: "Pedro Soto"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Name required", token: getToken(t, advisor),
			body:     marchallObj(t, student.NewStudent{Email: "pedro@test.cl"}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "Lead created", token: getToken(t, advisor),
			body:     marchallObj(t, student.NewStudent{Name: "Pedro Soto", Email: "pedro@test.cl", AdvisorID: advisor.ID}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/students"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v; data = %v", rec.Code, tt.wantCode, rec.Body.String())
				}
				if tt.wantCode == http.StatusCreated {
					var st student.Student
					if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
						t.Fatalf("json.Unmarshal() failed; err %v", err)
					}
					if st.Status != student.StatusLead {
						t.Errorf("failed! status = %v; want %v", st.Status, student.StatusLead)
					}
					if !st.AdvisorID.Valid || st.AdvisorID.Int != advisor.ID {
						t.Errorf("failed! advisor_id = %v", st.AdvisorID)
					}
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_studentApi_retrieve(t *testing.T) {
	resetDB(t)

	advisor := createUser(t, "Inés Soto", "ines1", "ines@test.cl", "", []string{user.RoleAdvisor}, true)
	portal := createUser(t, "Camila Rojas", "camila01", "camila@test.cl", "", []string{user.RoleStudent}, true)
	other := createUser(t, "Jorge Paz", "jorge1", "jorge@test.cl", "", []string{user.RoleStudent}, true)

	camila := createStudent(t, "Camila Rojas", portal.ID)

	path := "/v1/students/" + strconv.Itoa(camila.ID)

	tests := []httpTest{
		{name: "Auth required", path: path, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "Own record", path: path, token: getToken(t, portal), wantCode: http.StatusOK, wantData: marchallObj(t, camila)},
		{name: "Staff can access any record", path: path, token: getToken(t, advisor), wantCode: http.StatusOK, wantData: marchallObj(t, camila)},
		{
			name: "Someone else's record is off limits", path: path, token: getToken(t, other),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errPermDenied),
		},
		{
			name: "Unknown record", path: "/v1/students/999", token: getToken(t, advisor),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, errNotFound),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_studentApi_query(t *testing.T) {
	resetDB(t)

	advisor := createUser(t, "Inés Soto", "ines1", "ines@test.cl", "", []string{user.RoleAdvisor}, true)
	advisorToken := getToken(t, advisor)

	camila := createStudent(t, "Camila Rojas", 0)
	pedro := createStudent(t, "Pedro Soto", 0)

	var contacted student.Student
	{
		req, rec := newAuthRequest(
			http.MethodPost,
			"/v1/students/"+strconv.Itoa(pedro.ID)+"/status",
			advisorToken,
			marchallObj(t, student.ChangeStatus{Status: student.StatusContacted}),
		)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("changing status: code = %v; data = %v", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &contacted); err != nil {
			t.Fatalf("json.Unmarshal() failed; err %v", err)
		}
	}

	tests := []httpTest{
		{name: "Get all", path: "/v1/students", wantData: marchallList(t, camila, contacted)},
		{name: "search", path: "/v1/students?search=rojas", wantData: marchallList(t, camila)},
		{name: "status filter is cleaned", path: "/v1/students?status=%20CONTACTED%20", wantData: marchallList(t, contacted)},
		{name: "status (unknown)", path: "/v1/students?status=lost", wantData: marchallList(t, []interface{}{}...)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.token = advisorToken
		tt.wantCode = http.StatusOK

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_studentApi_changeStatus(t *testing.T) {
	resetDB(t)

	advisor := createUser(t, "Inés Soto", "ines1", "ines@test.cl", "", []string{user.RoleAdvisor}, true)
	camila := createStudent(t, "Camila Rojas", 0)

	path := "/v1/students/" + strconv.Itoa(camila.ID) + "/status"

	tests := []httpTest{
		{
			name: "Pipeline stages cannot be skipped",
			body: marchallObj(t, student.ChangeStatus{Status: student.StatusEnrolled}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": `cannot move from "lead" to "enrolled"`}),
		},
		{
			name: "Lead contacted",
			body: marchallObj(t, student.ChangeStatus{Status: student.StatusContacted}),
			wantCode: http.StatusOK,
		},
		{
			name: "Lost from any stage",
			body: marchallObj(t, student.ChangeStatus{Status: student.StatusLost}),
			wantCode: http.StatusOK,
		},
		{
			name: "Lost is terminal",
			body: marchallObj(t, student.ChangeStatus{Status: student.StatusContacted}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"status": `cannot move from "lost" to "contacted"`}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = path
		tt.token = getToken(t, advisor)

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v; data = %v", rec.Code, tt.wantCode, rec.Body.String())
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}
