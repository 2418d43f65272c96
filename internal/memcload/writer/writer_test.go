package writer

import (
	"context"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/G-Research/memcload/internal/memcload/convert"
	"github.com/G-Research/memcload/internal/memcload/metrics"
	"github.com/G-Research/memcload/internal/memcload/model"
	"github.com/G-Research/memcload/internal/memcload/testfixtures"
)

func runWriter(w *CacheWriter, batches ...model.Batch) Report {
	input := make(chan model.Batch, len(batches))
	for _, b := range batches {
		input <- b
	}
	close(input)
	w.input = input
	return w.Run(context.Background())
}

func TestRun_WritesAllBatches(t *testing.T) {
	s := testfixtures.NewFakeStore("127.0.0.1:33013")
	w := New("idfa", nil, s, false, metrics.Get())
	w.clock = clocktesting.NewFakeClock(time.Now())

	report := runWriter(w,
		model.Batch{"idfa:1": []byte("a"), "idfa:2": []byte("b")},
		model.Batch{"idfa:3": []byte("c")},
	)

	assert.Equal(t, Report{Partition: "idfa", Address: "127.0.0.1:33013", Sent: 3}, report)
	assert.Len(t, s.Items(), 3)
	assert.Equal(t, 2, s.Calls())
	assert.True(t, s.Closed())
}

func TestRun_FailedKeysAreLost(t *testing.T) {
	s := testfixtures.NewFakeStore("127.0.0.1:33013")
	s.Reject["idfa:2"] = true
	w := New("idfa", nil, s, false, metrics.Get())

	report := runWriter(w, model.Batch{"idfa:1": []byte("a"), "idfa:2": []byte("b")})

	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 1, report.Lost)
	assert.NotContains(t, s.Items(), "idfa:2")
}

func TestRun_DryRunOnlyLogs(t *testing.T) {
	s := testfixtures.NewFakeStore("127.0.0.1:33013")
	w := New("idfa", nil, s, true, metrics.Get())

	report := runWriter(w, model.Batch{"idfa:1": []byte("a"), "idfa:2": []byte("b")})

	assert.Equal(t, 2, report.Skipped)
	assert.Zero(t, report.Sent)
	assert.Zero(t, s.Calls())
	assert.Empty(t, s.Items())
	assert.True(t, s.Closed())
}

func TestRun_DryRunLogsDecodedValues(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()
	level := log.GetLevel()
	log.SetLevel(log.DebugLevel)
	defer log.SetLevel(level)

	entry, err := convert.Encode(&model.AppsInstalled{DevType: "idfa", DevId: "1", Lat: 1.5, Apps: []uint32{42}})
	require.NoError(t, err)
	s := testfixtures.NewFakeStore("127.0.0.1:33013")
	w := New("idfa", nil, s, true, metrics.Get())

	runWriter(w, model.Batch{entry.Key: entry.Value, "idfa:2": []byte{0xff}})

	var messages []string
	for _, e := range hook.AllEntries() {
		messages = append(messages, e.Message)
	}
	assert.Contains(t, messages, "127.0.0.1:33013 - idfa:1 -> "+dumper.Sdump(mustDecode(t, entry.Value)))
	assert.Contains(t, messages, "127.0.0.1:33013 - idfa:2 -> ff")
}

func mustDecode(t *testing.T, value []byte) interface{} {
	decoded, err := convert.Decode(value)
	require.NoError(t, err)
	return decoded
}

func TestRun_EmptyBatchesAreIgnored(t *testing.T) {
	s := testfixtures.NewFakeStore("127.0.0.1:33013")
	w := New("idfa", nil, s, false, metrics.Get())

	report := runWriter(w, model.Batch{}, nil)

	assert.Zero(t, s.Calls())
	assert.Equal(t, Report{Partition: "idfa", Address: "127.0.0.1:33013"}, report)
}

func TestRun_NoBatchesStillClosesStore(t *testing.T) {
	s := testfixtures.NewFakeStore("127.0.0.1:33013")
	w := New("idfa", nil, s, false, metrics.Get())

	runWriter(w)
	assert.True(t, s.Closed())
}
