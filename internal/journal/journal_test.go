package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyReasonPrefersStructuralChanges(t *testing.T) {
	assert.Equal(t, ReasonCreated, ClassifyReason(usnReasonFileCreate|usnReasonClose))
	assert.Equal(t, ReasonDeleted, ClassifyReason(usnReasonFileDelete|usnReasonClose))
	assert.Equal(t, ReasonRenamedOld, ClassifyReason(usnReasonRenameOldName))
	assert.Equal(t, ReasonRenamedNew, ClassifyReason(usnReasonRenameNewName))
	assert.Equal(t, ReasonDataModified, ClassifyReason(usnReasonDataExtend))
	assert.Equal(t, ReasonAttrsChanged, ClassifyReason(usnReasonAttrsChange))
	assert.Equal(t, ReasonClosed, ClassifyReason(usnReasonClose))
	assert.Equal(t, ReasonUnknown, ClassifyReason(0))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "running", StateRunning.String())
	assert.Equal(t, "not_opened", StateNotOpened.String())
}
