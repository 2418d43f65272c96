package memcload

import (
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/G-Research/memcload/internal/memcload/testfixtures"
)

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(CheckLines))
	assert.NoError(t, Check(testfixtures.SampleLines()))
}

func TestCheck_ReportsEveryBadLine(t *testing.T) {
	err := Check([]string{"idfa\tbroken", testfixtures.IdfaLine1, "gaid\t1\t2\t3\tno apps"})
	require.Error(t, err)
	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 2)
}
