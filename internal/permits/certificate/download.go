package certificate

import (
	"context"
	"errors"

	"zoning_portal_backend/internal/permits/repository"
	"zoning_portal_backend/internal/permits/workflow"
	"zoning_portal_backend/platform/apperr"
)

const repeatDownloadNote = "repeat download"

var errFileMissing = errors.New("certificate file is missing from storage")

// Download is a certificate file handed to its owner.
type Download struct {
	Certificate repository.Certificate
	FileName    string
	Content     []byte
}

// Download returns the stored certificate file. The first download marks the
// certificate collected; repeats only append a history row.
func (i *Issuer) Download(ctx context.Context, certificateID int64, actor workflow.Actor) (Download, error) {
	cert, err := i.repo.GetCertificate(ctx, certificateID)
	if err != nil {
		return Download{}, err
	}
	req, err := i.repo.GetRequest(ctx, cert.RequestID)
	if err != nil {
		return Download{}, err
	}
	if !actor.CanAccess(req.UserID) {
		return Download{}, apperr.Forbidden("certificate belongs to another applicant")
	}

	exists, err := i.storage.Exists(ctx, cert.CertificateFilePath)
	if err != nil {
		return Download{}, err
	}
	if !exists {
		return Download{}, apperr.Wrap(apperr.KindNotFound, "certificate file not found", errFileMissing)
	}
	content, err := i.storage.Read(ctx, cert.CertificateFilePath)
	if err != nil {
		return Download{}, err
	}

	err = i.tx.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := i.repo.GetCertificateForUpdate(txCtx, certificateID)
		if err != nil {
			return err
		}
		next, changed := workflow.CollectTransition(current.Status)
		if !changed {
			note := repeatDownloadNote
			return i.appendHistory(txCtx, workflow.EntityCertificate, current.ID, string(current.Status), string(next), actor.Label(), &note)
		}
		if err := i.repo.UpdateCertificateStatus(txCtx, current.ID, next); err != nil {
			return err
		}
		if err := i.appendHistory(txCtx, workflow.EntityCertificate, current.ID, string(current.Status), string(next), actor.Label(), nil); err != nil {
			return err
		}
		cert.Status = next
		return nil
	})
	if err != nil {
		return Download{}, err
	}

	return Download{
		Certificate: cert,
		FileName:    cert.CertificateNumber + ".pdf",
		Content:     content,
	}, nil
}
