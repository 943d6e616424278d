package handlers

import (
	"errors"
	"net/http"

	"github.com/texperia/registration/services"
	"github.com/texperia/registration/storage"
)

const receiptFormField = "receipt"

type PaymentHandler struct {
	paymentService services.PaymentService
}

func NewPaymentHandler(ps services.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: ps}
}

func (h *PaymentHandler) Info(w http.ResponseWriter, r *http.Request) {
	email, ok := currentEmail(r)
	if !ok {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	info, err := h.paymentService.Info(r.Context(), email)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, info, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PaymentHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	email, ok := currentEmail(r)
	if !ok {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	payment, err := h.paymentService.Initiate(r.Context(), email)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	response := jsonResponse{
		"order_id": payment.OrderID,
		"amount":   payment.Amount,
		"payment":  payment,
	}
	if err := writeJSON(w, http.StatusOK, response, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PaymentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	email, ok := currentEmail(r)
	if !ok {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	var input services.SubmitPaymentInput
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	payment, err := h.paymentService.SubmitEvidence(r.Context(), email, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, payment, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *PaymentHandler) Status(w http.ResponseWriter, r *http.Request) {
	email, ok := currentEmail(r)
	if !ok {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	payment, err := h.paymentService.Status(r.Context(), email)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, payment, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UploadReceipt принимает multipart-файл в поле "receipt".
func (h *PaymentHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	email, ok := currentEmail(r)
	if !ok {
		unauthorizedResponse(w, r, "failed to identify current user")
		return
	}

	// запас на заголовки multipart
	r.Body = http.MaxBytesReader(w, r.Body, storage.MaxReceiptSize+maxJSONBodyBytes)
	if err := r.ParseMultipartForm(storage.MaxReceiptSize); err != nil {
		var maxBytesError *http.MaxBytesError
		if errors.As(err, &maxBytesError) {
			failedValidationResponse(w, r, map[string]string{receiptFormField: "file is too large"})
			return
		}
		badRequestResponse(w, r, errors.New("request must be multipart/form-data"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(receiptFormField)
	if err != nil {
		failedValidationResponse(w, r, map[string]string{receiptFormField: "file is required"})
		return
	}
	defer file.Close()

	// Заголовок Content-Type части задаёт клиент, поэтому смотрим на байты.
	contentType, err := storage.DetectContentType(file)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	payment, err := h.paymentService.UploadReceipt(r.Context(), email, services.ReceiptUpload{
		ContentType: contentType,
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, payment, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
