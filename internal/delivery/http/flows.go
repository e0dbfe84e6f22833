package http

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tradematch/backend/internal/domain"
)

// FlowHeader names the flow a request targets
const FlowHeader = "x-genkit-client"

// maxRequestBytes bounds a flow request body
const maxRequestBytes = 1 << 20

// FlowName identifies one of the fixed set of flows
type FlowName string

const (
	FlowExtractRequirement FlowName = "extractRequirementDetails"
	FlowFindSuppliers      FlowName = "findMatchingSuppliers"
)

// resolveFlow validates the header value against the known flows
func resolveFlow(header string) (FlowName, error) {
	name := strings.TrimSpace(header)
	if name == "" {
		return "", &domain.DispatchError{Err: domain.ErrFlowNameMissing}
	}
	switch FlowName(name) {
	case FlowExtractRequirement, FlowFindSuppliers:
		return FlowName(name), nil
	}
	return "", &domain.DispatchError{Flow: name, Err: domain.ErrUnknownFlow}
}

// flowRequest is the closed set of flow inputs
type flowRequest interface {
	flow() FlowName
}

// ExtractionRequest is the input of extractRequirementDetails
type ExtractionRequest struct {
	Text string `json:"text"`
}

func (ExtractionRequest) flow() FlowName { return FlowExtractRequirement }

// MatchingRequest is the input of findMatchingSuppliers
type MatchingRequest struct {
	Requirement       domain.ProcurementRequirement `json:"requirement"`
	InternalSuppliers []domain.SupplierProfile      `json:"internalSuppliers"`
}

func (MatchingRequest) flow() FlowName { return FlowFindSuppliers }

// decodeFlowRequest reads the body into the input type of the named flow
func decodeFlowRequest(flow FlowName, body io.Reader) (flowRequest, error) {
	var req flowRequest
	switch flow {
	case FlowExtractRequirement:
		var in ExtractionRequest
		if err := json.NewDecoder(body).Decode(&in); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
		req = in
	case FlowFindSuppliers:
		var in MatchingRequest
		if err := json.NewDecoder(body).Decode(&in); err != nil {
			return nil, fmt.Errorf("invalid request body: %w", err)
		}
		req = in
	default:
		return nil, &domain.DispatchError{Flow: string(flow), Err: domain.ErrUnknownFlow}
	}
	return req, nil
}
