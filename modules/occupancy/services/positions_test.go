package services_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Bernardo-Fellini-Oliveira/Trabalho-de-Engenharia-de-Software-UFRGS-2025-02/modules/occupancy/services"
)

func TestCreatePosition_LinksBothEnds(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	vice := f.position(t, "Vice-Director", &director.ID)

	require.Equal(t, director.ID, *vice.SubstitutesFor)
	got, err := f.svc.GetPosition(f.ctx, director.ID)
	require.NoError(t, err)
	require.Equal(t, vice.ID, *got.Substitute)
	require.True(t, vice.Exclusive)
	require.True(t, vice.Active)
}

func TestCreatePosition_Rejections(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	f.position(t, "Vice-Director", &director.ID)

	_, err := f.svc.CreatePosition(f.ctx, services.CreatePositionInput{Name: "Director", OrganizationID: f.org.ID})
	requireServiceError(t, err, http.StatusConflict, services.CodeDuplicateName)

	_, err = f.svc.CreatePosition(f.ctx, services.CreatePositionInput{
		Name: "Second Vice", OrganizationID: f.org.ID, SubstitutesFor: &director.ID,
	})
	requireServiceError(t, err, http.StatusBadRequest, services.CodeSubstituteTaken)

	_, err = f.svc.CreatePosition(f.ctx, services.CreatePositionInput{
		Name: "Advisor", OrganizationID: f.org.ID, SubstitutesFor: ptr(int64(999)),
	})
	requireServiceError(t, err, http.StatusNotFound, services.CodePrincipalNotFound)

	_, err = f.svc.CreatePosition(f.ctx, services.CreatePositionInput{
		Name: "Board", OrganizationID: f.org.ID, Exclusive: ptr(false), SubstitutesFor: &director.ID,
	})
	requireServiceError(t, err, http.StatusBadRequest, services.CodeSubstituteNotExclusive)

	_, err = f.svc.CreatePosition(f.ctx, services.CreatePositionInput{Name: "Clerk", OrganizationID: 999})
	requireServiceError(t, err, http.StatusNotFound, services.CodeOrganizationNotFound)

	_, err = f.svc.CreatePosition(f.ctx, services.CreatePositionInput{Name: "   ", OrganizationID: f.org.ID})
	requireServiceError(t, err, http.StatusBadRequest, services.CodeInvalidBody)

	other, err := f.svc.CreateOrganization(f.ctx, services.CreateNamedInput{Name: "Treasury"})
	require.NoError(t, err)
	_, err = f.svc.CreatePosition(f.ctx, services.CreatePositionInput{
		Name: "Treasurer", OrganizationID: other.ID, SubstitutesFor: &director.ID,
	})
	requireServiceError(t, err, http.StatusBadRequest, services.CodePrincipalOtherOrganization)

	// failed creations leave nothing behind
	positions, err := f.svc.ListPositions(f.ctx, &f.org.ID)
	require.NoError(t, err)
	require.Len(t, positions, 2)
}

func TestUpdatePosition_RelinkIntoCycleRejected(t *testing.T) {
	f := newFixture(t)
	a := f.position(t, "A", nil)
	b := f.position(t, "B", &a.ID)

	_, err := f.svc.UpdatePosition(f.ctx, a.ID, services.UpdatePositionInput{SubstitutesFor: &b.ID})
	requireServiceError(t, err, http.StatusBadRequest, services.CodeChainCycle)

	got, err := f.svc.GetPosition(f.ctx, a.ID)
	require.NoError(t, err)
	require.Nil(t, got.SubstitutesFor)
	require.Equal(t, b.ID, *got.Substitute)
}

func TestUpdatePosition_RelinkAndUnlink(t *testing.T) {
	f := newFixture(t)
	a := f.position(t, "A", nil)
	b := f.position(t, "B", nil)
	c := f.position(t, "C", &a.ID)

	moved, err := f.svc.UpdatePosition(f.ctx, c.ID, services.UpdatePositionInput{SubstitutesFor: &b.ID})
	require.NoError(t, err)
	require.Equal(t, b.ID, *moved.SubstitutesFor)

	gotA, err := f.svc.GetPosition(f.ctx, a.ID)
	require.NoError(t, err)
	require.Nil(t, gotA.Substitute)
	gotB, err := f.svc.GetPosition(f.ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, *gotB.Substitute)

	unlinked, err := f.svc.UpdatePosition(f.ctx, c.ID, services.UpdatePositionInput{SubstitutesFor: ptr(int64(0)), Name: ptr("C renamed")})
	require.NoError(t, err)
	require.Nil(t, unlinked.SubstitutesFor)
	require.Equal(t, "C renamed", unlinked.Name)
	gotB, err = f.svc.GetPosition(f.ctx, b.ID)
	require.NoError(t, err)
	require.Nil(t, gotB.Substitute)
}

func TestUpdatePosition_OrganizationChangeBlockedInChain(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	vice := f.position(t, "Vice-Director", &director.ID)
	other, err := f.svc.CreateOrganization(f.ctx, services.CreateNamedInput{Name: "Treasury"})
	require.NoError(t, err)

	_, err = f.svc.UpdatePosition(f.ctx, vice.ID, services.UpdatePositionInput{OrganizationID: &other.ID})
	requireServiceError(t, err, http.StatusBadRequest, services.CodeChainOrganizationMismatch)

	moved, err := f.svc.UpdatePosition(f.ctx, vice.ID, services.UpdatePositionInput{
		OrganizationID: &other.ID, SubstitutesFor: ptr(int64(0)),
	})
	require.NoError(t, err)
	require.Equal(t, other.ID, moved.OrganizationID)
	require.Nil(t, moved.SubstitutesFor)

	_, err = f.svc.UpdatePosition(f.ctx, director.ID, services.UpdatePositionInput{Name: ptr("Vice-Director")})
	require.NoError(t, err, "the name is free once the vice moved away")
}

func TestDeletePosition_SoftThenReactivate(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	vice := f.position(t, "Vice-Director", &director.ID)
	assistant := f.position(t, "Assistant", &vice.ID)

	affected, err := f.svc.DeletePosition(f.ctx, vice.ID, true, false)
	require.NoError(t, err)
	require.Equal(t, []int64{vice.ID, assistant.ID}, affected)

	gotDirector, err := f.svc.GetPosition(f.ctx, director.ID)
	require.NoError(t, err)
	require.True(t, gotDirector.Active)
	require.Nil(t, gotDirector.Substitute)
	gotAssistant, err := f.svc.GetPosition(f.ctx, assistant.ID)
	require.NoError(t, err)
	require.False(t, gotAssistant.Active)

	_, err = f.svc.DeletePosition(f.ctx, assistant.ID, true, false)
	requireServiceError(t, err, http.StatusBadRequest, services.CodeAlreadyInactive)

	reactivated, err := f.svc.ReactivatePosition(f.ctx, assistant.ID)
	require.NoError(t, err)
	require.Equal(t, []int64{assistant.ID, vice.ID}, reactivated)

	gotDirector, err = f.svc.GetPosition(f.ctx, director.ID)
	require.NoError(t, err)
	require.Equal(t, vice.ID, *gotDirector.Substitute)

	_, err = f.svc.ReactivatePosition(f.ctx, vice.ID)
	requireServiceError(t, err, http.StatusBadRequest, services.CodeAlreadyActive)
}

func TestReactivatePosition_SlotTakenDropsStalePointer(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	vice := f.position(t, "Vice-Director", &director.ID)

	_, err := f.svc.DeletePosition(f.ctx, vice.ID, true, false)
	require.NoError(t, err)
	replacement := f.position(t, "Acting Vice", &director.ID)

	_, err = f.svc.ReactivatePosition(f.ctx, vice.ID)
	require.NoError(t, err)

	gotVice, err := f.svc.GetPosition(f.ctx, vice.ID)
	require.NoError(t, err)
	require.True(t, gotVice.Active)
	require.Nil(t, gotVice.SubstitutesFor)
	gotDirector, err := f.svc.GetPosition(f.ctx, director.ID)
	require.NoError(t, err)
	require.Equal(t, replacement.ID, *gotDirector.Substitute)
}

func TestDeletePosition_HardRequiresForceWithOccupancies(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	vice := f.position(t, "Vice-Director", &director.ID)
	f.occupy(t, f.alice.ID, director.ID, day(2020, 1, 1), nil)
	f.occupy(t, f.bob.ID, vice.ID, day(2020, 2, 1), nil)

	_, err := f.svc.DeletePosition(f.ctx, director.ID, false, false)
	requireServiceError(t, err, http.StatusBadRequest, services.CodePositionHasOccupancies)
	require.Len(t, f.terms(t, vice.ID), 1)

	affected, err := f.svc.DeletePosition(f.ctx, director.ID, false, true)
	require.NoError(t, err)
	require.Equal(t, []int64{director.ID, vice.ID}, affected)

	positions, err := f.svc.ListPositions(f.ctx, nil)
	require.NoError(t, err)
	require.Empty(t, positions)
}

func TestDeletePosition_HardDetachesAbove(t *testing.T) {
	f := newFixture(t)
	director := f.position(t, "Director", nil)
	vice := f.position(t, "Vice-Director", &director.ID)

	_, err := f.svc.DeletePosition(f.ctx, vice.ID, false, false)
	require.NoError(t, err)

	got, err := f.svc.GetPosition(f.ctx, director.ID)
	require.NoError(t, err)
	require.Nil(t, got.Substitute)
	f.position(t, "New Vice", &director.ID)
}

func TestPositionBatches_ReportPerItem(t *testing.T) {
	f := newFixture(t, services.WithMaxBatchSize(3))

	created, err := f.svc.CreatePositions(f.ctx, []services.CreatePositionInput{
		{Name: "Director", OrganizationID: f.org.ID},
		{Name: "Director", OrganizationID: f.org.ID},
		{Name: "Secretary", OrganizationID: f.org.ID},
	})
	require.NoError(t, err)
	require.Len(t, created, 3)
	require.Equal(t, services.BatchSuccess, created[0].Status)
	require.Equal(t, services.BatchError, created[1].Status)
	require.Equal(t, services.CodeDuplicateName, created[1].Code)
	require.Equal(t, services.BatchSuccess, created[2].Status)
	secretary := created[2].Position.ID

	deleted, err := f.svc.DeletePositions(f.ctx, []int64{secretary, 999}, true, false)
	require.NoError(t, err)
	require.Equal(t, services.BatchSuccess, deleted[0].Status)
	require.Equal(t, services.BatchNotFound, deleted[1].Status)

	again, err := f.svc.DeletePositions(f.ctx, []int64{secretary}, true, false)
	require.NoError(t, err)
	require.Equal(t, services.BatchAlreadyInactive, again[0].Status)

	reactivated, err := f.svc.ReactivatePositions(f.ctx, []int64{secretary, created[0].Position.ID})
	require.NoError(t, err)
	require.Equal(t, services.BatchSuccess, reactivated[0].Status)
	require.Equal(t, services.BatchAlreadyActive, reactivated[1].Status)

	_, err = f.svc.DeletePositions(f.ctx, []int64{1, 2, 3, 4}, true, false)
	requireServiceError(t, err, http.StatusBadRequest, services.CodeBatchTooLarge)
	_, err = f.svc.CreatePositions(f.ctx, nil)
	requireServiceError(t, err, http.StatusBadRequest, services.CodeInvalidBody)
}
