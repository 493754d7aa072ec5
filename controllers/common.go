package controllers

import (
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"go-storefront/apperrors"
	"go-storefront/middleware"
	"go-storefront/services"
	"go-storefront/utils"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxUploadMemory = 32 << 20

// respond writes {"success": true, ...payload}
func respond(w http.ResponseWriter, status int, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["success"] = true
	utils.WriteJSON(w, status, payload)
}

func pathID(r *http.Request, name string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		return primitive.NilObjectID, apperrors.BadRequest("Invalid " + name)
	}
	return id, nil
}

func parseObjectID(value, field string) (*primitive.ObjectID, error) {
	value = strings.TrimSpace(value)
	if value == "" || value == "null" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return nil, apperrors.BadRequest("Invalid " + field)
	}
	return &id, nil
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// form wraps a parsed multipart form with typed accessors
type form struct {
	values map[string][]string
	files  map[string][]*multipart.FileHeader
	err    error
}

func parseForm(r *http.Request) (*form, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return nil, apperrors.BadRequest("Invalid multipart form")
	}
	return &form{values: r.MultipartForm.Value, files: r.MultipartForm.File}, nil
}

func (f *form) has(key string) bool {
	_, ok := f.values[key]
	return ok
}

func (f *form) value(key string) string {
	if v := f.values[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

func (f *form) valuePtr(key string) *string {
	if !f.has(key) {
		return nil
	}
	v := f.value(key)
	return &v
}

func (f *form) floatPtr(key string) *float64 {
	if !f.has(key) || f.value(key) == "" {
		return nil
	}
	v, err := strconv.ParseFloat(f.value(key), 64)
	if err != nil && f.err == nil {
		f.err = apperrors.BadRequest(key + " must be a number")
	}
	return &v
}

func (f *form) intPtr(key string) *int {
	if !f.has(key) || f.value(key) == "" {
		return nil
	}
	v, err := strconv.Atoi(f.value(key))
	if err != nil && f.err == nil {
		f.err = apperrors.BadRequest(key + " must be a whole number")
	}
	return &v
}

func (f *form) boolPtr(key string) *bool {
	if !f.has(key) || f.value(key) == "" {
		return nil
	}
	v, err := strconv.ParseBool(f.value(key))
	if err != nil && f.err == nil {
		f.err = apperrors.BadRequest(key + " must be true or false")
	}
	return &v
}

// mediaFiles opens every uploaded file under key. The returned func closes them.
func (f *form) mediaFiles(key string) ([]services.MediaFile, func(), error) {
	var opened []multipart.File
	closeAll := func() {
		for _, file := range opened {
			file.Close()
		}
	}

	var media []services.MediaFile
	for _, header := range f.files[key] {
		file, err := header.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperrors.BadRequest("Could not read uploaded file " + header.Filename)
		}
		opened = append(opened, file)
		media = append(media, services.MediaFile{Content: file, ContentType: header.Header.Get("Content-Type")})
	}
	return media, closeAll, nil
}

// customerID returns the signed-in customer's uid, or "" for anonymous requests
func customerID(r *http.Request) string {
	if id, ok := middleware.CustomerFromContext(r.Context()); ok {
		return id.UID
	}
	return ""
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
