package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/common"
	"github.com/Quytkiemsy/PerfumeFrontEnd-sub000/log"
)

type ResponseMessage struct {
	Status int
	Data   interface{}
}

func Message(message string) ResponseMessage {
	msg := ResponseMessage{
		Status: http.StatusOK,
		Data:   map[string]interface{}{"message": message},
	}

	return msg
}

func MessageWithStatus(status int, message string) ResponseMessage {
	msg := ResponseMessage{
		Status: status,
		Data:   map[string]interface{}{"message": message},
	}

	return msg
}

func MessageWithData(status int, data interface{}) ResponseMessage {
	msg := ResponseMessage{
		Status: status,
		Data:   data,
	}

	return msg
}

func Respond(w http.ResponseWriter, data interface{}) {
	var err error

	switch res := data.(type) {
	case ResponseMessage:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(res.Status)
		err = json.NewEncoder(w).Encode(res.Data)

	case common.HttpErrorMessage:
		err = res.WriteHttpError(w)

	default:
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		err = json.NewEncoder(w).Encode(data)
	}

	if err != nil {
		log.Errorf("Error encoding data for response: %v", err.Error())
	}
}
