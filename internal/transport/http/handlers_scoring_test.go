package httptransport

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"taaruf/internal/scoring"
	"taaruf/internal/traits"
	"taaruf/pkg/domain"
	"taaruf/pkg/testutil"
)

func (s *HandlersSuite) seedTests(userID domain.UserID, preMarriage, disc float64) {
	s.tests.Seed(userID, time.Now().Add(-time.Hour),
		traits.TestResult{UserID: userID, Category: traits.CategoryPreMarriage, Score: preMarriage},
		traits.TestResult{UserID: userID, Category: traits.CategoryDISC, Score: disc},
	)
}

func (s *HandlersSuite) TestScoreEndpoint() {
	s.seedTests(s.requester, 80, 60)
	s.seedTests(s.target, 80, 60)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/compatibility/score",
		scoreRequest{UserA: s.requester.String(), UserB: s.target.String()})
	rr := testutil.DoRequest(s.router, s.authed(req, s.requester))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	res := testutil.UnmarshalResponse[scoreResponse](s.T(), rr)
	s.Equal(scoring.EngineVersion, res.Version)
	// Identical vectors: perfect compatibility, zero risk.
	s.InDelta(100, res.Compatibility, 0.001)
	s.Zero(res.ConflictRisk)

	s.Run("untested pair scores neutral", func() {
		other := domain.UserID(uuid.New())
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/compatibility/score",
			scoreRequest{UserA: s.requester.String(), UserB: other.String()})
		rr := testutil.DoRequest(s.router, s.authed(req, s.requester))
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		res := testutil.UnmarshalResponse[scoreResponse](s.T(), rr)
		s.InDelta(50, res.FinalScore, 0.001)
	})

	s.Run("self pair is a validation error", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/compatibility/score",
			scoreRequest{UserA: s.requester.String(), UserB: s.requester.String()})
		rr := testutil.DoRequest(s.router, s.authed(req, s.requester))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "validation_error")
	})

	s.Run("malformed id is invalid input", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/compatibility/score",
			scoreRequest{UserA: "not-a-uuid", UserB: s.target.String()})
		rr := testutil.DoRequest(s.router, s.authed(req, s.requester))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "invalid_input")
	})
}

func (s *HandlersSuite) TestReadinessEndpoint() {
	s.seedTests(s.requester, 80, 60)

	req := testutil.NewRequest(s.T(), http.MethodGet, "/users/"+s.requester.String()+"/readiness")
	rr := testutil.DoRequest(s.router, s.authed(req, s.requester))
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	res := testutil.UnmarshalResponse[readinessResponse](s.T(), rr)
	s.Equal(s.requester.String(), res.UserID)
	s.Equal(scoring.EngineVersion, res.Version)
	s.Greater(res.Readiness, 0.0)

	s.Run("only the owner may read it", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/users/"+s.requester.String()+"/readiness")
		rr := testutil.DoRequest(s.router, s.authed(req, s.target))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusForbidden, "forbidden")
	})
}
