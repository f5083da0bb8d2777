// File: internal/connector/nuvei/transformers.go
package nuvei

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain/model"
)

// Wire transaction types. Auth defers settlement to a later capture,
// Sale settles immediately.
const (
	transactionTypeAuth = "Auth"
	transactionTypeSale = "Sale"
)

// Wire transaction statuses.
const (
	statusApproved = "APPROVED"
	statusDeclined = "DECLINED"
	statusError    = "ERROR"
	statusRedirect = "REDIRECT"
	statusPending  = "PENDING"
)

const timestampFormat = "20060102150405"

type credentials struct {
	merchantID     string
	merchantSiteID string
	secret         string
}

func credentialsFrom(call *connector.CallContext) (credentials, error) {
	c := credentials{
		merchantID:     call.AuthConfig["merchant_id"],
		merchantSiteID: call.AuthConfig["merchant_site_id"],
		secret:         call.AuthConfig["merchant_secret"],
	}
	if c.merchantID == "" || c.merchantSiteID == "" || c.secret == "" {
		return credentials{}, fmt.Errorf("nuvei: incomplete credentials for merchant %s", call.MerchantID)
	}
	return c, nil
}

func checksum(parts ...string) string {
	h := sha256.New()
	for _, p := range parts {
		h.Write([]byte(p))
	}
	return hex.EncodeToString(h.Sum(nil))
}

type sessionRequest struct {
	MerchantID      string `json:"merchantId"`
	MerchantSiteID  string `json:"merchantSiteId"`
	ClientRequestID string `json:"clientRequestId"`
	TimeStamp       string `json:"timeStamp"`
	Checksum        string `json:"checksum"`
}

type sessionResponse struct {
	SessionToken string `json:"sessionToken"`
	Status       string `json:"status"`
	ErrCode      int64  `json:"errCode"`
	Reason       string `json:"reason"`
}

type urlDetails struct {
	SuccessURL      string `json:"successUrl,omitempty"`
	FailureURL      string `json:"failureUrl,omitempty"`
	PendingURL      string `json:"pendingUrl,omitempty"`
	NotificationURL string `json:"notificationUrl,omitempty"`
}

type deviceDetails struct {
	IPAddress string `json:"ipAddress,omitempty"`
}

type cardPayload struct {
	CardNumber      string `json:"cardNumber,omitempty"`
	CardHolderName  string `json:"cardHolderName,omitempty"`
	ExpirationMonth string `json:"expirationMonth,omitempty"`
	ExpirationYear  string `json:"expirationYear,omitempty"`
	CVV             string `json:"CVV,omitempty"`
}

type paymentOption struct {
	Card                *cardPayload `json:"card,omitempty"`
	UserPaymentOptionID string       `json:"userPaymentOptionId,omitempty"`
}

type paymentsRequest struct {
	SessionToken         string         `json:"sessionToken"`
	MerchantID           string         `json:"merchantId"`
	MerchantSiteID       string         `json:"merchantSiteId"`
	ClientRequestID      string         `json:"clientRequestId"`
	ClientUniqueID       string         `json:"clientUniqueId"`
	Amount               string         `json:"amount"`
	Currency             string         `json:"currency"`
	UserTokenID          string         `json:"userTokenId,omitempty"`
	TransactionType      string         `json:"transactionType"`
	PaymentOption        paymentOption  `json:"paymentOption"`
	RelatedTransactionID string         `json:"relatedTransactionId,omitempty"`
	IsRebilling          string         `json:"isRebilling,omitempty"`
	URLDetails           *urlDetails    `json:"urlDetails,omitempty"`
	DeviceDetails        *deviceDetails `json:"deviceDetails,omitempty"`
	TimeStamp            string         `json:"timeStamp"`
	Checksum             string         `json:"checksum"`
}

// flowRequest carries the post-authorization flows: settle, void.
type flowRequest struct {
	MerchantID           string `json:"merchantId"`
	MerchantSiteID       string `json:"merchantSiteId"`
	ClientRequestID      string `json:"clientRequestId"`
	Amount               string `json:"amount"`
	Currency             string `json:"currency"`
	RelatedTransactionID string `json:"relatedTransactionId"`
	TimeStamp            string `json:"timeStamp"`
	Checksum             string `json:"checksum"`
}

type syncRequest struct {
	SessionToken string `json:"sessionToken"`
}

type threeDResponse struct {
	V2Supported string `json:"v2supported"`
	ACSURL      string `json:"acsUrl"`
	CReq        string `json:"cReq"`
}

type cardResponse struct {
	ThreeD *threeDResponse `json:"threeD"`
}

type paymentOptionResponse struct {
	UserPaymentOptionID string        `json:"userPaymentOptionId"`
	Card                *cardResponse `json:"card"`
}

type paymentsResponse struct {
	SessionToken      string                 `json:"sessionToken"`
	OrderID           string                 `json:"orderId"`
	UserTokenID       string                 `json:"userTokenId"`
	PaymentOption     *paymentOptionResponse `json:"paymentOption"`
	TransactionStatus string                 `json:"transactionStatus"`
	TransactionID     string                 `json:"transactionId"`
	TransactionType   string                 `json:"transactionType"`
	GwErrorCode       int64                  `json:"gwErrorCode"`
	GwErrorReason     string                 `json:"gwErrorReason"`
	Status            string                 `json:"status"`
	ErrCode           int64                  `json:"errCode"`
	Reason            string                 `json:"reason"`
}

func buildSessionRequest(call *connector.CallContext) (*sessionRequest, error) {
	creds, err := credentialsFrom(call)
	if err != nil {
		return nil, err
	}
	ts := time.Now().UTC().Format(timestampFormat)
	reqID := call.Attempt.AttemptID
	return &sessionRequest{
		MerchantID:      creds.merchantID,
		MerchantSiteID:  creds.merchantSiteID,
		ClientRequestID: reqID,
		TimeStamp:       ts,
		Checksum:        checksum(creds.merchantID, creds.merchantSiteID, reqID, ts, creds.secret),
	}, nil
}

func buildPaymentsRequest(call *connector.CallContext) (*paymentsRequest, error) {
	creds, err := credentialsFrom(call)
	if err != nil {
		return nil, err
	}

	txType := transactionTypeSale
	if call.Request.CaptureMethod == model.CaptureMethodManual {
		txType = transactionTypeAuth
	}

	option := paymentOption{}
	switch {
	case call.Request.Card != nil:
		option.Card = &cardPayload{
			CardNumber:      call.Request.Card.Number,
			CardHolderName:  call.Request.Card.HolderName,
			ExpirationMonth: call.Request.Card.ExpiryMonth,
			ExpirationYear:  call.Request.Card.ExpiryYear,
			CVV:             call.Request.Card.CVC,
		}
	case call.Request.MandateReference != nil && call.Request.MandateReference.ConnectorMandateID != "":
		option.UserPaymentOptionID = call.Request.MandateReference.ConnectorMandateID
	case call.Request.PaymentToken != "":
		option.UserPaymentOptionID = call.Request.PaymentToken
	default:
		return nil, fmt.Errorf("nuvei: no payment instrument in request for attempt %s", call.Attempt.AttemptID)
	}

	req := &paymentsRequest{
		SessionToken:         call.SessionToken,
		MerchantID:           creds.merchantID,
		MerchantSiteID:       creds.merchantSiteID,
		ClientRequestID:      call.Attempt.AttemptID,
		ClientUniqueID:       call.PaymentID,
		Amount:               minorAmount(call.Request.Amount),
		Currency:             call.Request.Currency,
		UserTokenID:          call.Request.CustomerID,
		TransactionType:      txType,
		PaymentOption:        option,
		RelatedTransactionID: call.Request.RelatedTransactionID,
	}
	if call.Request.OffSession {
		req.IsRebilling = "1"
	}
	if call.Request.ReturnURL != "" {
		req.URLDetails = &urlDetails{
			SuccessURL: call.Request.ReturnURL,
			FailureURL: call.Request.ReturnURL,
			PendingURL: call.Request.ReturnURL,
		}
	}
	if call.Request.BrowserIP != "" {
		req.DeviceDetails = &deviceDetails{IPAddress: call.Request.BrowserIP}
	}

	req.TimeStamp = time.Now().UTC().Format(timestampFormat)
	req.Checksum = checksum(
		creds.merchantID, creds.merchantSiteID, req.ClientRequestID,
		req.Amount, req.Currency, req.TimeStamp, creds.secret,
	)
	return req, nil
}

func buildFlowRequest(call *connector.CallContext, amount int64) (*flowRequest, error) {
	creds, err := credentialsFrom(call)
	if err != nil {
		return nil, err
	}
	if call.Attempt.ConnectorTransaction == "" {
		return nil, fmt.Errorf("nuvei: attempt %s has no connector transaction id", call.Attempt.AttemptID)
	}
	ts := time.Now().UTC().Format(timestampFormat)
	amt := minorAmount(amount)
	return &flowRequest{
		MerchantID:           creds.merchantID,
		MerchantSiteID:       creds.merchantSiteID,
		ClientRequestID:      call.Attempt.AttemptID,
		Amount:               amt,
		Currency:             call.Request.Currency,
		RelatedTransactionID: call.Attempt.ConnectorTransaction,
		TimeStamp:            ts,
		Checksum: checksum(
			creds.merchantID, creds.merchantSiteID, call.Attempt.AttemptID,
			amt, call.Request.Currency, call.Attempt.ConnectorTransaction, ts, creds.secret,
		),
	}, nil
}

func minorAmount(amount int64) string {
	return fmt.Sprintf("%d", amount)
}

// attemptStatusFrom maps a wire transaction status onto the attempt state
// machine. Approval means different things for Auth and Sale.
func attemptStatusFrom(transactionStatus, transactionType string) model.AttemptStatus {
	switch transactionStatus {
	case statusApproved:
		if transactionType == transactionTypeAuth {
			return model.AttemptStatusAuthorized
		}
		return model.AttemptStatusCharged
	case statusDeclined, statusError:
		return model.AttemptStatusFailure
	case statusRedirect:
		return model.AttemptStatusAuthenticationPending
	default:
		return model.AttemptStatusPending
	}
}

func (r *paymentsResponse) errorResponse(statusCode int) *connector.ErrorResponse {
	code := fmt.Sprintf("%d", r.ErrCode)
	message := r.Reason
	if r.GwErrorCode != 0 {
		code = fmt.Sprintf("%d", r.GwErrorCode)
		message = r.GwErrorReason
	}
	return &connector.ErrorResponse{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Reason:     r.Reason,
	}
}

func (r *paymentsResponse) transactionResponse(flow connector.Flow) *connector.TransactionResponse {
	out := &connector.TransactionResponse{
		ResourceID:   r.TransactionID,
		Status:       attemptStatusFrom(r.TransactionStatus, r.TransactionType),
		SessionToken: r.SessionToken,
	}
	if r.PaymentOption != nil {
		if r.PaymentOption.UserPaymentOptionID != "" {
			out.ConnectorToken = r.PaymentOption.UserPaymentOptionID
			out.MandateReference = &connector.MandateReference{
				ConnectorMandateID: r.PaymentOption.UserPaymentOptionID,
			}
		}
		if card := r.PaymentOption.Card; card != nil && card.ThreeD != nil {
			if flow == connector.FlowInitPayment {
				out.Enrolled3DS = card.ThreeD.V2Supported == "true"
				out.RelatedTxnID = r.TransactionID
			}
			if card.ThreeD.ACSURL != "" {
				out.Redirect = &connector.RedirectForm{
					URL:    card.ThreeD.ACSURL,
					Method: "POST",
					Fields: map[string]string{"creq": card.ThreeD.CReq},
				}
			}
		}
	}
	return out
}
