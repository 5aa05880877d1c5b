package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// The return token rides the browser redirect back from checkout. It is
// a base64-encoded query string "ids=<submission>|<feed>|<form>&hash=<h>"
// where the hash keys the ids portion with the process-wide signing
// secret. Anyone can read it; nobody without the secret can mint one.

// ReturnToken is the decoded, integrity-checked correlation triple.
type ReturnToken struct {
	SubmissionID int64
	FeedID       int64
	FormID       int64
}

// EncodeReturnToken builds the opaque token for a checkout callback URL.
func EncodeReturnToken(secret string, submissionID, feedID, formID int64) string {
	idsQuery := fmt.Sprintf("ids=%d|%d|%d", submissionID, feedID, formID)
	signed := idsQuery + "&hash=" + signIDs(secret, idsQuery)
	return base64.URLEncoding.EncodeToString([]byte(signed))
}

// DecodeReturnToken decodes and verifies a return token. Fails closed:
// any malformed or tampered token yields an integrity error and the
// caller must not touch any record.
func DecodeReturnToken(secret, token string) (*ReturnToken, error) {
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		// Tolerate standard encoding; the original scheme predates URL-safe tokens.
		raw, err = base64.StdEncoding.DecodeString(token)
		if err != nil {
			return nil, integrityError("token is not valid base64", err)
		}
	}

	query, err := url.ParseQuery(string(raw))
	if err != nil {
		return nil, integrityError("token is not a valid query string", err)
	}

	ids := query.Get("ids")
	hash := query.Get("hash")
	if ids == "" || hash == "" {
		return nil, integrityError("token is missing ids or hash", nil)
	}

	expected := signIDs(secret, "ids="+ids)
	if !hmac.Equal([]byte(expected), []byte(hash)) {
		return nil, integrityError("token hash mismatch", nil)
	}

	parts := strings.Split(ids, "|")
	if len(parts) != 3 {
		return nil, integrityError("token ids are malformed", nil)
	}

	decoded := &ReturnToken{}
	for i, target := range []*int64{&decoded.SubmissionID, &decoded.FeedID, &decoded.FormID} {
		v, err := strconv.ParseInt(parts[i], 10, 64)
		if err != nil {
			return nil, integrityError("token ids are not numeric", err)
		}
		*target = v
	}

	return decoded, nil
}

func signIDs(secret, idsQuery string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(idsQuery))
	return hex.EncodeToString(mac.Sum(nil))
}

func integrityError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:    ErrCodeIntegrityCheckFailed,
		Message: message,
		Err:     err,
	}
}
