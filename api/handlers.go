package api

import (
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"
	apirouter "github.com/mrz1836/go-api-router"

	"github.com/minkyc/minkyc-go/internal/ledger"
	"github.com/minkyc/minkyc-go/internal/protocol"
)

// identityResponse is the wire shape of an identity record lookup.
type identityResponse struct {
	Address           string `json:"address"`
	Owner             string `json:"owner"`
	Index             uint64 `json:"index"`
	Commitment        string `json:"commitment"`
	Revoked           bool   `json:"revoked"`
	VerificationCount uint64 `json:"verificationCount"`
}

// receiptResponse is the wire shape of a proof receipt lookup.
type receiptResponse struct {
	Address   string `json:"address"`
	Identity  string `json:"identity"`
	ProofHash string `json:"proofHash"`
}

func (s *Service) health(w http.ResponseWriter, req *http.Request, _ httprouter.Params) {
	apirouter.ReturnResponse(w, req, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) identity(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	addr, err := ledger.ParseAddress(ps.ByName("address"))
	if err != nil {
		apirouter.ReturnResponse(w, req, http.StatusBadRequest, err.Error())
		return
	}
	record, err := s.Protocol.GetIdentity(req.Context(), addr)
	if errors.Is(err, protocol.ErrNotFound) {
		apirouter.ReturnResponse(w, req, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		apirouter.ReturnResponse(w, req, http.StatusInternalServerError, err.Error())
		return
	}
	apirouter.ReturnResponse(w, req, http.StatusOK, identityResponse{
		Address:           addr.String(),
		Owner:             hex.EncodeToString(record.Owner[:]),
		Index:             record.Index,
		Commitment:        hex.EncodeToString(record.Commitment[:]),
		Revoked:           record.Revoked,
		VerificationCount: record.VerificationCount,
	})
}

func (s *Service) receipt(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	addr, err := ledger.ParseAddress(ps.ByName("address"))
	if err != nil {
		apirouter.ReturnResponse(w, req, http.StatusBadRequest, err.Error())
		return
	}
	receipt, err := s.Protocol.GetReceipt(req.Context(), addr)
	if errors.Is(err, protocol.ErrNotFound) {
		apirouter.ReturnResponse(w, req, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		apirouter.ReturnResponse(w, req, http.StatusInternalServerError, err.Error())
		return
	}
	apirouter.ReturnResponse(w, req, http.StatusOK, receiptResponse{
		Address:   addr.String(),
		Identity:  receipt.Identity.String(),
		ProofHash: hex.EncodeToString(receipt.ProofHash[:]),
	})
}

func (s *Service) ownerCount(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
	keyBytes, err := hex.DecodeString(ps.ByName("key"))
	if err != nil || len(keyBytes) != 32 {
		apirouter.ReturnResponse(w, req, http.StatusBadRequest, "owner key must be 32 hex-encoded bytes")
		return
	}
	var owner protocol.Owner
	copy(owner[:], keyBytes)
	count, exists, err := s.Protocol.GetCounter(req.Context(), owner)
	if err != nil {
		apirouter.ReturnResponse(w, req, http.StatusInternalServerError, err.Error())
		return
	}
	apirouter.ReturnResponse(w, req, http.StatusOK, map[string]interface{}{
		"owner":  ps.ByName("key"),
		"count":  count,
		"exists": exists,
	})
}
