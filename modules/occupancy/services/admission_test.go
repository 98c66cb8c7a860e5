package services_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/occupancy"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/domain/pendingapproval"
	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
)

func TestCreateOccupancy_ConsecutiveTermsAndLimit(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)

	first := f.occupy(t, f.alice.ID, director.ID, day(2020, 1, 1), day(2021, 12, 31))
	require.Equal(t, 1, first.TermNumber)
	second := f.occupy(t, f.alice.ID, director.ID, day(2022, 1, 1), day(2023, 12, 31))
	require.Equal(t, 2, second.TermNumber)

	_, err := f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{
		PersonID:   f.alice.ID,
		PositionID: director.ID,
		StartDate:  day(2024, 1, 1),
	})
	svcErr := requireServiceError(t, err, http.StatusBadRequest, services.CodeTermLimit)
	require.Equal(t, occupancy.RuleTermLimit, svcErr.Rule)
	require.NotNil(t, svcErr.ConflictingID)
	require.Equal(t, second.ID, *svcErr.ConflictingID)
	require.Nil(t, svcErr.PendingApprovalID)

	require.Equal(t, []int{1, 2}, f.terms(t, director.ID))
	pending, err := f.svc.ListPendingApprovals(f.ctx, nil)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestCreateOccupancy_OverlapReportsConflict(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	held := f.occupy(t, f.alice.ID, director.ID, day(2020, 1, 1), day(2021, 12, 31))

	_, err := f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{
		PersonID:   f.bob.ID,
		PositionID: director.ID,
		StartDate:  day(2021, 6, 1),
		EndDate:    day(2021, 12, 1),
	})
	svcErr := requireServiceError(t, err, http.StatusBadRequest, services.CodeOverlap)
	require.Equal(t, occupancy.RuleOccupied, svcErr.Rule)
	require.Equal(t, held.ID, *svcErr.ConflictingID)
}

func TestCreateOccupancy_TouchingIntervalsDoNotOverlap(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	f.occupy(t, f.alice.ID, director.ID, day(2020, 1, 1), day(2020, 12, 31))

	o := f.occupy(t, f.bob.ID, director.ID, day(2020, 12, 31), nil)
	require.Equal(t, 1, o.TermNumber)
}

func TestCreateOccupancy_InsertSplitsRunOfAnotherPerson(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	f.occupy(t, f.alice.ID, director.ID, day(2018, 1, 1), day(2018, 12, 31))
	f.occupy(t, f.alice.ID, director.ID, day(2020, 1, 1), day(2020, 12, 31))
	require.Equal(t, []int{1, 2}, f.terms(t, director.ID))

	f.occupy(t, f.bob.ID, director.ID, day(2019, 1, 1), day(2019, 12, 31))
	require.Equal(t, []int{1, 1, 1}, f.terms(t, director.ID))
}

func TestCreateOccupancy_NonExclusiveSkipsRules(t *testing.T) {
	f := newFixture(t)
	board, err := f.svc.CreatePosition(f.ctx, services.CreatePositionInput{
		Name:           "Board member",
		OrganizationID: f.org.ID,
		Exclusive:      ptr(false),
	})
	require.NoError(t, err)

	a := f.occupy(t, f.alice.ID, board.ID, day(2020, 1, 1), nil)
	b := f.occupy(t, f.bob.ID, board.ID, day(2020, 1, 1), nil)
	c := f.occupy(t, f.alice.ID, board.ID, day(2021, 1, 1), nil)
	require.Equal(t, []int{1, 1, 1}, []int{a.TermNumber, b.TermNumber, c.TermNumber})
}

func TestCreateOccupancy_InputErrors(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)

	_, err := f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{PositionID: director.ID})
	requireServiceError(t, err, http.StatusBadRequest, services.CodeInvalidBody)

	_, err = f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{
		PersonID: f.alice.ID, PositionID: director.ID, StartDate: day(2021, 1, 1), EndDate: day(2020, 1, 1),
	})
	requireServiceError(t, err, http.StatusBadRequest, services.CodeInvalidRange)

	_, err = f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{
		PersonID: f.alice.ID, PositionID: director.ID, Policy: "maybe",
	})
	requireServiceError(t, err, http.StatusBadRequest, services.CodeInvalidBody)

	_, err = f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{PersonID: 999, PositionID: director.ID})
	requireServiceError(t, err, http.StatusNotFound, services.CodePersonNotFound)

	_, err = f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{PersonID: f.alice.ID, PositionID: 999})
	requireServiceError(t, err, http.StatusNotFound, services.CodePositionNotFound)

	_, err = f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{
		PersonID: f.alice.ID, PositionID: director.ID, DecreeID: ptr(int64(999)),
	})
	requireServiceError(t, err, http.StatusNotFound, services.CodeDecreeNotFound)
}

func TestCreateOccupancy_WithDecree(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	decree, err := f.svc.CreateDecree(f.ctx, services.CreateDecreeInput{Number: "D-2020/17", IssuedOn: day(2019, 12, 20)})
	require.NoError(t, err)

	o, err := f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{
		PersonID: f.alice.ID, PositionID: director.ID, DecreeID: &decree.ID, StartDate: day(2020, 1, 1), Notes: "appointed",
	})
	require.NoError(t, err)
	require.Equal(t, decree.ID, *o.DecreeID)
	require.Equal(t, "appointed", o.Notes)
}

func TestCreateOccupancy_InactivePositionRejected(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	_, err := f.svc.DeletePosition(f.ctx, director.ID, true, false)
	require.NoError(t, err)

	_, err = f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{PersonID: f.alice.ID, PositionID: director.ID})
	requireServiceError(t, err, http.StatusBadRequest, services.CodePositionInactive)
}

func TestCreateOccupancy_SubstituteRules(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	vice := f.position(t, "Vice-Director", &director.ID)
	f.occupy(t, f.alice.ID, director.ID, day(2020, 1, 1), day(2021, 12, 31))

	_, err := f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{PersonID: f.bob.ID, PositionID: vice.ID})
	requireServiceError(t, err, http.StatusBadRequest, services.CodeSubstituteStartRequired)

	_, err = f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{
		PersonID: f.bob.ID, PositionID: vice.ID, StartDate: day(2019, 6, 1),
	})
	requireServiceError(t, err, http.StatusBadRequest, services.CodePrincipalNotOccupied)

	o := f.occupy(t, f.bob.ID, vice.ID, day(2021, 12, 31), nil)
	require.Equal(t, vice.ID, o.PositionID)
}

func TestCreateOccupancy_DeferRecordsPendingApproval(t *testing.T) {
	f := newFixture(t, services.WithConflictPolicy(services.PolicyDefer))
	require.Equal(t, services.PolicyDefer, f.svc.Policy())
	director := f.position(t, "Director", nil)
	f.occupy(t, f.alice.ID, director.ID, day(2020, 1, 1), day(2021, 12, 31))
	second := f.occupy(t, f.alice.ID, director.ID, day(2022, 1, 1), day(2023, 12, 31))

	_, err := f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{
		PersonID: f.alice.ID, PositionID: director.ID, StartDate: day(2024, 1, 1),
	})
	svcErr := requireServiceError(t, err, http.StatusConflict, services.CodeTermLimit)
	require.NotNil(t, svcErr.PendingApprovalID)
	require.Equal(t, occupancy.RuleTermLimit, svcErr.Rule)
	require.Equal(t, second.ID, *svcErr.ConflictingID)
	require.Equal(t, []int{1, 2}, f.terms(t, director.ID))

	status := pendingapproval.StatusPending
	pending, err := f.svc.ListPendingApprovals(f.ctx, &status)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, *svcErr.PendingApprovalID, pending[0].ID)
	require.Equal(t, f.alice.ID, pending[0].Payload.Occupancy.PersonID)
	require.Equal(t, occupancy.RuleTermLimit, pending[0].Rule)
}

func TestCreateOccupancy_RequestPolicyOverridesDefault(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	f.occupy(t, f.alice.ID, director.ID, day(2020, 1, 1), nil)

	_, err := f.svc.CreateOccupancy(f.ctx, services.CreateOccupancyInput{
		PersonID: f.bob.ID, PositionID: director.ID, StartDate: day(2021, 1, 1), Policy: services.PolicyDefer,
	})
	svcErr := requireServiceError(t, err, http.StatusConflict, services.CodeOverlap)
	require.NotNil(t, svcErr.PendingApprovalID)
}

func TestUpdateOccupancy_ReplacesRecord(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	first := f.occupy(t, f.alice.ID, director.ID, day(2020, 1, 1), day(2020, 12, 31))
	f.occupy(t, f.alice.ID, director.ID, day(2021, 1, 1), day(2021, 12, 31))

	updated, err := f.svc.UpdateOccupancy(f.ctx, first.ID, services.CreateOccupancyInput{
		PersonID: f.alice.ID, PositionID: director.ID, StartDate: day(2019, 1, 1), EndDate: day(2020, 12, 31),
	})
	require.NoError(t, err)
	require.NotEqual(t, first.ID, updated.ID)
	require.Equal(t, 1, updated.TermNumber)
	require.Equal(t, []int{1, 2}, f.terms(t, director.ID))

	_, err = f.svc.GetOccupancy(f.ctx, first.ID)
	requireServiceError(t, err, http.StatusNotFound, services.CodeOccupancyNotFound)
}

func TestUpdateOccupancy_ViolationKeepsOriginal(t *testing.T) {
	f := newFixture(t, services.WithConflictPolicy(services.PolicyDefer))
	director := f.position(t, "Director", nil)
	f.occupy(t, f.alice.ID, director.ID, day(2020, 1, 1), day(2020, 12, 31))
	bobs := f.occupy(t, f.bob.ID, director.ID, day(2021, 1, 1), day(2021, 12, 31))

	_, err := f.svc.UpdateOccupancy(f.ctx, bobs.ID, services.CreateOccupancyInput{
		PersonID: f.bob.ID, PositionID: director.ID, StartDate: day(2020, 6, 1), EndDate: day(2021, 12, 31),
	})
	svcErr := requireServiceError(t, err, http.StatusBadRequest, services.CodeOverlap)
	require.Nil(t, svcErr.PendingApprovalID)

	got, err := f.svc.GetOccupancy(f.ctx, bobs.ID)
	require.NoError(t, err)
	require.Equal(t, day(2021, 1, 1), got.StartDate)
}

func TestUpdateOccupancy_SplitRunEditIsNotTermLimited(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	f.occupy(t, f.alice.ID, director.ID, day(2016, 1, 1), day(2017, 12, 31))
	f.occupy(t, f.alice.ID, director.ID, day(2018, 1, 1), day(2019, 12, 31))
	bobs := f.occupy(t, f.bob.ID, director.ID, day(2020, 1, 1), day(2021, 12, 31))
	f.occupy(t, f.alice.ID, director.ID, day(2022, 1, 1), day(2023, 12, 31))
	require.Equal(t, []int{1, 2, 1, 1}, f.terms(t, director.ID))

	updated, err := f.svc.UpdateOccupancy(f.ctx, bobs.ID, services.CreateOccupancyInput{
		PersonID: f.bob.ID, PositionID: director.ID, StartDate: day(2020, 1, 1), EndDate: day(2021, 12, 31),
		Notes: "acting appointment",
	})
	require.NoError(t, err)
	require.Equal(t, "acting appointment", updated.Notes)
	require.Equal(t, 1, updated.TermNumber)
	require.Equal(t, []int{1, 2, 1, 1}, f.terms(t, director.ID))
}

func TestUpdateOccupancy_MoveThatJoinsRunIsTermLimited(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	f.occupy(t, f.alice.ID, director.ID, day(2016, 1, 1), day(2017, 12, 31))
	f.occupy(t, f.alice.ID, director.ID, day(2018, 1, 1), day(2019, 12, 31))
	bobs := f.occupy(t, f.bob.ID, director.ID, day(2020, 1, 1), day(2021, 12, 31))
	f.occupy(t, f.alice.ID, director.ID, day(2022, 1, 1), day(2023, 12, 31))

	_, err := f.svc.UpdateOccupancy(f.ctx, bobs.ID, services.CreateOccupancyInput{
		PersonID: f.bob.ID, PositionID: director.ID, StartDate: day(2024, 1, 1), EndDate: day(2025, 12, 31),
	})
	svcErr := requireServiceError(t, err, http.StatusBadRequest, services.CodeTermLimit)
	require.Equal(t, occupancy.RuleTermLimit, svcErr.Rule)

	_, err = f.svc.GetOccupancy(f.ctx, bobs.ID)
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 1, 1}, f.terms(t, director.ID))
}

func TestCheckEligibility(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	held := f.occupy(t, f.alice.ID, director.ID, day(2020, 1, 1), day(2021, 12, 31))

	v, err := f.svc.CheckEligibility(f.ctx, services.EligibilityInput{
		PersonID: f.bob.ID, PositionID: director.ID, StartDate: day(2021, 6, 1),
	})
	require.NoError(t, err)
	require.False(t, v.Eligible)
	require.Equal(t, occupancy.RuleOccupied, v.Rule)
	require.Equal(t, held.ID, *v.ConflictingOccupancyID)

	v, err = f.svc.CheckEligibility(f.ctx, services.EligibilityInput{
		PersonID: f.alice.ID, PositionID: director.ID, StartDate: day(2022, 1, 1),
	})
	require.NoError(t, err)
	require.True(t, v.Eligible)
	require.Contains(t, v.Reason, "term 2")

	_, err = f.svc.CheckEligibility(f.ctx, services.EligibilityInput{PersonID: f.alice.ID, PositionID: director.ID})
	requireServiceError(t, err, http.StatusBadRequest, services.CodeInvalidBody)

	require.Equal(t, []int{1}, f.terms(t, director.ID))
}
