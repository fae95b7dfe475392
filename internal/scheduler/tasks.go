package scheduler

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const TaskCertificateReissue = "certificates.reissue"

type CertificateReissuePayload struct {
	PaymentID int64  `json:"paymentId"`
	Actor     string `json:"actor"`
}

func NewCertificateReissueTask(payload CertificateReissuePayload) (*asynq.Task, error) {
	if payload.PaymentID <= 0 {
		return nil, fmt.Errorf("invalid payment id %d", payload.PaymentID)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCertificateReissue, data), nil
}

func ParseCertificateReissuePayload(task *asynq.Task) (CertificateReissuePayload, error) {
	var payload CertificateReissuePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CertificateReissuePayload{}, err
	}
	return payload, nil
}
