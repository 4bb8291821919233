package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"food-dispatch/internal/assignment-service/core/domain/model"
	"food-dispatch/internal/assignment-service/core/myerrors"
	"food-dispatch/internal/assignment-service/core/ports"
	"food-dispatch/internal/mylogger"
)

// directory results are over-fetched so filtering still leaves enough drivers
const overfetchFactor = 4

type SelectionRequest struct {
	OrderID      string
	Pickup       model.Location
	RadiusMeters int
	VehicleClass string
	Exclude      []string
}

type CandidateSelector struct {
	directory     ports.IDirectory
	maxCandidates int
	log           mylogger.Logger
}

func NewCandidateSelector(directory ports.IDirectory, maxCandidates int, log mylogger.Logger) *CandidateSelector {
	return &CandidateSelector{
		directory:     directory,
		maxCandidates: maxCandidates,
		log:           log,
	}
}

// Select returns at most maxCandidates drivers within the radius, nearest
// first, ties broken by driver id. An empty result is not an error.
func (s *CandidateSelector) Select(ctx context.Context, req SelectionRequest) ([]model.Candidate, error) {
	log := s.log.Action("select_candidates").With("order_id", req.OrderID, "radius_m", req.RadiusMeters)

	drivers, err := s.directory.Nearby(ctx, model.NearbyQuery{
		Location:     req.Pickup,
		RadiusMeters: req.RadiusMeters,
		Limit:        s.maxCandidates * overfetchFactor,
		VehicleType:  req.VehicleClass,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", myerrors.ErrDirectoryUnavailable, err)
	}

	excluded := make(map[string]struct{}, len(req.Exclude))
	for _, id := range req.Exclude {
		excluded[id] = struct{}{}
	}

	seen := make(map[string]struct{}, len(drivers))
	out := make([]model.Candidate, 0, len(drivers))
	for _, d := range drivers {
		if d.DriverID == "" {
			continue
		}
		if _, ok := excluded[d.DriverID]; ok {
			continue
		}
		if _, ok := seen[d.DriverID]; ok {
			continue
		}
		if req.VehicleClass != "" && !strings.EqualFold(d.VehicleType, req.VehicleClass) {
			continue
		}
		dist := haversineMeters(req.Pickup, d.Location)
		if dist > float64(req.RadiusMeters) {
			continue
		}
		seen[d.DriverID] = struct{}{}
		out = append(out, model.Candidate{
			DriverID:       d.DriverID,
			DistanceMeters: dist,
			ResponseStatus: model.ResponsePending,
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].DistanceMeters != out[j].DistanceMeters {
			return out[i].DistanceMeters < out[j].DistanceMeters
		}
		return out[i].DriverID < out[j].DriverID
	})
	if len(out) > s.maxCandidates {
		out = out[:s.maxCandidates]
	}

	log.Info("candidates selected", "returned_by_directory", len(drivers), "selected", len(out))
	return out, nil
}
