package machine

import (
	"github.com/wfunc/coffee-bearer/internal/hardware"
	"github.com/wfunc/coffee-bearer/internal/models"
)

// fakeClock 测试用可控时钟
type fakeClock struct {
	now uint32
}

func (c *fakeClock) Millis() uint32 {
	return c.now
}

func (c *fakeClock) advance(ms uint32) {
	c.now += ms
}

// recordSink 记录推送事件的测试出口
type recordSink struct {
	snapshots []StatusSnapshot
	captured  []string
	logs      []string
}

func (r *recordSink) StatusChanged(s StatusSnapshot) {
	r.snapshots = append(r.snapshots, s)
}

func (r *recordSink) UIDCaptured(uid string) {
	r.captured = append(r.captured, uid)
}

func (r *recordSink) LogLine(category, level, message string) {
	r.logs = append(r.logs, category+"/"+level+": "+message)
}

// testRig 组件测试夹具（无数据库，仅内存）
type testRig struct {
	board     *hardware.MockBoard
	feedback  *FeedbackCoordinator
	dispenser *Dispenser
	creds     *CredentialStore
	scanner   *Scanner
	sink      *recordSink
	state     *models.MachineState
}

// newTestRig 构建测试夹具
func newTestRig() *testRig {
	board := hardware.NewMockBoard()
	_ = board.Connect()

	state := &models.MachineState{}
	sink := &recordSink{}
	feedback := NewFeedbackCoordinator(board, nil)
	dispenser := NewDispenser(board, feedback, nil, state, DefaultDispenserConfig(), nil)
	creds := NewCredentialStore(nil, DefaultCredentialStoreConfig(), nil)
	scanner := NewScanner(board, creds, dispenser, feedback, sink, DefaultScannerConfig(), nil)

	return &testRig{
		board:     board,
		feedback:  feedback,
		dispenser: dispenser,
		creds:     creds,
		scanner:   scanner,
		sink:      sink,
		state:     state,
	}
}
