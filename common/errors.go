package common

import (
	"encoding/json"
	"net/http"
)

// Error builds an error that controllers can write straight to the response.
func Error(status int, msg string) error {
	return &httpErrorMessage{
		Status: status,
		msg:    msg,
	}
}

type HttpErrorMessage interface {
	WriteHttpError(wr http.ResponseWriter) error
	StatusCode() int
	Error() string
}

type httpErrorMessage struct {
	Status int
	msg    string
}

func (hem *httpErrorMessage) Error() string {
	return hem.msg
}

func (hem *httpErrorMessage) StatusCode() int {
	return hem.Status
}

func (hem *httpErrorMessage) WriteHttpError(wr http.ResponseWriter) error {
	wr.Header().Set("Content-Type", "application/json")
	wr.WriteHeader(hem.Status)
	return json.NewEncoder(wr).Encode(map[string]interface{}{"message": hem.msg})
}
