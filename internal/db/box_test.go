package db

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateBox_AllFields(t *testing.T) {
	db := setupTestDB(t)

	b := &Box{
		Name:                 "CR1",
		LRewardDuration:      intPtr(45),
		RRewardDuration:      intPtr(50),
		SerialPort:           "/dev/ttyACM1",
		VideoDevice:          strPtr("/dev/video0"),
		VideoWindowPosition:  Position{X: intPtr(0), Y: intPtr(0)},
		GUIWindowPosition:    Position{X: intPtr(640), Y: intPtr(10)},
		WindowPositionIRPlot: Position{X: intPtr(1280)},
		SubprocessWindowYPos: intPtr(600),
		VideoBrightness:      intPtr(128),
		VideoGain:            intPtr(20),
		VideoExposure:        intPtr(-6),
	}
	require.NoError(t, db.CreateBox(b))

	got, err := db.GetBox(b.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(b, got, cmpopts.IgnoreFields(Box{}, "CreatedAt", "UpdatedAt")); diff != "" {
		t.Errorf("GetBox mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, got.WindowPositionIRPlot.Y)
}

func TestCreateBox_MissingRequiredField(t *testing.T) {
	db := setupTestDB(t)

	err := db.CreateBox(&Box{Name: "CR1", LRewardDuration: intPtr(40)})
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "serial_port", verr.Field)

	err = db.CreateBox(&Box{Name: "CR1", SerialPort: "/dev/ttyACM0"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "l_reward_duration", verr.Field)

	// Zero is a value, not a missing one.
	require.NoError(t, db.CreateBox(&Box{Name: "CR1", LRewardDuration: intPtr(0), SerialPort: "/dev/ttyACM0"}))

	err = db.CreateBox(&Box{SerialPort: "/dev/ttyACM0"})
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "name", verr.Field)
}

func TestBoxPositions_SetPair(t *testing.T) {
	db := setupTestDB(t)
	b := createTestBox(t, db, "CR2")

	require.NoError(t, b.GUIWindowPosition.SetPair([]*int{intPtr(100), intPtr(200)}))
	err := b.VideoWindowPosition.SetPair([]*int{intPtr(1)})
	assert.ErrorIs(t, err, ErrPairArity)
	require.NoError(t, db.UpdateBox(b))

	got, err := db.GetBoxByName("CR2")
	require.NoError(t, err)
	pair := got.GUIWindowPosition.Pair()
	require.NotNil(t, pair[0])
	require.NotNil(t, pair[1])
	assert.Equal(t, 100, *pair[0])
	assert.Equal(t, 200, *pair[1])
	assert.False(t, got.VideoWindowPosition.IsSet())
}

func TestGetAllBoxes_OrderedByName(t *testing.T) {
	db := setupTestDB(t)
	createTestBox(t, db, "CR3")
	createTestBox(t, db, "CR10")
	createTestBox(t, db, "CR1")

	boxes, err := db.GetAllBoxes()
	require.NoError(t, err)
	require.Len(t, boxes, 3)
	assert.Equal(t, "CR1", boxes[0].Name)
	assert.Equal(t, "CR10", boxes[1].Name)
	assert.Equal(t, "CR3", boxes[2].Name)
}

func TestDeleteBox_ClearsSessionReference(t *testing.T) {
	db := setupTestDB(t)
	m := createTestMouse(t, db, "KM101")
	b := createTestBox(t, db, "CR1")
	s := createTestSession(t, db, m, b, testStart)

	require.NoError(t, db.DeleteBox(b.ID))

	got, err := db.GetSession(s.Name)
	require.NoError(t, err)
	assert.Nil(t, got.BoxID)

	_, err = db.GetBox(b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
