package patients

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/dentalbook/internal/dental"
	"github.com/wolfman30/dentalbook/internal/store"
)

func input() Input {
	return Input{FirstName: " Ana ", LastName: "Santos", Phone: "0917 123 4567", Email: "Ana@Gmail.com", Age: 30, Sex: "Female"}
}

func TestCreateNormalizesAndDefaults(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)

	p, err := svc.Create(context.Background(), input())
	require.NoError(t, err)
	assert.Equal(t, "Ana", p.FirstName)
	assert.Equal(t, "09171234567", p.Phone)
	assert.Equal(t, "ana@gmail.com", p.Email)
	assert.Equal(t, "female", p.Sex)
	assert.Equal(t, dental.PatientActive, p.Status)
	assert.Equal(t, "Ana Santos", p.ContactName)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)

	in := input()
	in.Phone = "12345"
	in.Email = "ana@clinic.ph"
	_, err := svc.Create(context.Background(), in)
	require.ErrorIs(t, err, ErrInvalidInput)
	assert.Contains(t, err.Error(), "phone number")
	assert.Contains(t, err.Error(), "email must use")

	in = input()
	in.Email = ""
	_, err = svc.Create(context.Background(), in)
	assert.NoError(t, err, "email is optional for staff entry")
}

func TestListFiltersAndHistory(t *testing.T) {
	st := store.NewMemoryStore()
	svc := NewService(st, nil)
	ctx := context.Background()

	ana, err := svc.Create(ctx, input())
	require.NoError(t, err)
	ben := input()
	ben.FirstName, ben.Phone, ben.Status = "Ben", "09181112222", dental.PatientInactive
	_, err = svc.Create(ctx, ben)
	require.NoError(t, err)

	out, err := svc.List(ctx, Filter{Status: dental.PatientInactive})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Ben", out[0].FirstName)

	out, err = svc.List(ctx, Filter{Query: "0917-123"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, ana.ID, out[0].ID)

	out, err = svc.List(ctx, Filter{Query: "Ana 2"})
	require.NoError(t, err)
	assert.Empty(t, out, "digits inside a name search must not match phone numbers")

	out, err = svc.List(ctx, Filter{Query: "22"})
	require.NoError(t, err)
	assert.Empty(t, out, "two digits are too short for a phone search")

	out, err = svc.List(ctx, Filter{Query: "(0918) 111"})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Ben", out[0].FirstName)

	require.NoError(t, st.CreateAppointment(ctx, &dental.Appointment{PatientID: ana.ID, Date: "2025-06-15", Time: "9:00 AM"}))
	hist, err := svc.History(ctx, ana.ID)
	require.NoError(t, err)
	assert.Len(t, hist, 1)

	_, err = svc.History(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHandlerCRUD(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil)
	r := chi.NewRouter()
	r.Mount("/patients", NewHandler(svc, nil).Routes())

	body, _ := json.Marshal(input())
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/patients/", bytes.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created dental.Patient
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	update := input()
	update.Age = 31
	body, _ = json.Marshal(update)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/patients/"+created.ID, bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"age":31`)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/patients/"+created.ID, nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients/"+created.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/patients/?status=archived", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
