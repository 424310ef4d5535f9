package ble

import "sync"

// Notification records one Notify call on the fake stack.
type Notification struct {
	Conn  Conn
	Char  Characteristic
	Value []byte
}

// FakeStack is an in-process Stack for tests and for builds without the
// ble tag. Commands succeed and complete synchronously unless a failure
// is scripted; peer activity is injected through Connect, DropPeer, Write
// and friends.
type FakeStack struct {
	mu     sync.Mutex
	events Events

	submitStartErr  error
	startResults    []error
	completeAdvErr  error
	completeScanErr error
	notifyErr       error

	deviceName   string
	advData      []byte
	advDataCalls int
	scanRsp      []byte
	advertising  bool
	startCalls   int
	stopCalls    int
	notifies     []Notification
	dropped      []Conn
}

// NewFakeStack returns a fake with every command succeeding.
func NewFakeStack() *FakeStack {
	return &FakeStack{}
}

// --- scripting ---

// ScriptStartResults queues per-call completion results for the next start
// commands; a nil entry completes successfully. Once the queue drains,
// starts succeed again.
func (f *FakeStack) ScriptStartResults(errs ...error) {
	f.mu.Lock()
	f.startResults = append(f.startResults, errs...)
	f.mu.Unlock()
}

// FailStartSubmit makes StartAdvertising return err without completing.
func (f *FakeStack) FailStartSubmit(err error) {
	f.mu.Lock()
	f.submitStartErr = err
	f.mu.Unlock()
}

// FailAdvData makes the next advertising-data completion fail.
func (f *FakeStack) FailAdvData(err error) {
	f.mu.Lock()
	f.completeAdvErr = err
	f.mu.Unlock()
}

// FailScanRsp makes the next scan-response completion fail.
func (f *FakeStack) FailScanRsp(err error) {
	f.mu.Lock()
	f.completeScanErr = err
	f.mu.Unlock()
}

// FailNotify makes Notify return err.
func (f *FakeStack) FailNotify(err error) {
	f.mu.Lock()
	f.notifyErr = err
	f.mu.Unlock()
}

// --- peer simulation ---

// Connect delivers a connection-established event.
func (f *FakeStack) Connect(conn Conn) {
	f.sink().Connected(conn)
}

// DropPeer delivers a disconnect event.
func (f *FakeStack) DropPeer(conn Conn) {
	f.sink().Disconnected(conn)
}

// KillAdvertising stops advertising from the stack side, as a flaky
// controller would.
func (f *FakeStack) KillAdvertising() {
	f.mu.Lock()
	f.advertising = false
	f.mu.Unlock()
	f.sink().AdvStopped()
}

// Write delivers a characteristic write and returns its status.
func (f *FakeStack) Write(conn Conn, char Characteristic, value []byte) Status {
	return f.sink().WriteRequest(conn, char, value)
}

// Read delivers a characteristic read.
func (f *FakeStack) Read(conn Conn, char Characteristic) ([]byte, Status) {
	return f.sink().ReadRequest(conn, char)
}

// Arm toggles notifications for char, as a peer writing the notification
// descriptor would.
func (f *FakeStack) Arm(conn Conn, char Characteristic, enabled bool) {
	f.sink().NotifyArmed(conn, char, enabled)
}

// --- inspection ---

// StartCalls returns how many start commands were issued.
func (f *FakeStack) StartCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.startCalls
}

// StopCalls returns how many stop commands were issued.
func (f *FakeStack) StopCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopCalls
}

// Advertising reports whether the fake considers advertising active.
func (f *FakeStack) Advertising() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advertising
}

// DeviceName returns the last staged device name.
func (f *FakeStack) DeviceName() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deviceName
}

// AdvData returns the last programmed primary block.
func (f *FakeStack) AdvData() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.advData...)
}

// AdvDataCalls returns how many times the primary block was programmed.
func (f *FakeStack) AdvDataCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.advDataCalls
}

// ScanRsp returns the last programmed scan-response block.
func (f *FakeStack) ScanRsp() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]byte(nil), f.scanRsp...)
}

// Notifications returns all notifications sent so far.
func (f *FakeStack) Notifications() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Notification(nil), f.notifies...)
}

// Dropped returns the peers the session asked to disconnect.
func (f *FakeStack) Dropped() []Conn {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Conn(nil), f.dropped...)
}

func (f *FakeStack) sink() Events {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events
}

// --- Stack ---

func (f *FakeStack) Bind(events Events) {
	f.mu.Lock()
	f.events = events
	f.mu.Unlock()
}

func (f *FakeStack) SetDeviceName(name string) error {
	f.mu.Lock()
	f.deviceName = name
	f.mu.Unlock()
	return nil
}

func (f *FakeStack) SetAdvertisingData(data []byte) error {
	f.mu.Lock()
	f.advData = append([]byte(nil), data...)
	f.advDataCalls++
	err := f.completeAdvErr
	ev := f.events
	f.mu.Unlock()
	ev.AdvDataSet(err)
	return nil
}

func (f *FakeStack) SetScanResponse(data []byte) error {
	f.mu.Lock()
	f.scanRsp = append([]byte(nil), data...)
	err := f.completeScanErr
	ev := f.events
	f.mu.Unlock()
	ev.ScanRspSet(err)
	return nil
}

func (f *FakeStack) StartAdvertising() error {
	f.mu.Lock()
	f.startCalls++
	if f.submitStartErr != nil {
		err := f.submitStartErr
		f.mu.Unlock()
		return err
	}
	var result error
	if len(f.startResults) > 0 {
		result = f.startResults[0]
		f.startResults = f.startResults[1:]
	}
	if result == nil {
		f.advertising = true
	}
	ev := f.events
	f.mu.Unlock()
	ev.AdvStarted(result)
	return nil
}

func (f *FakeStack) StopAdvertising() error {
	f.mu.Lock()
	f.stopCalls++
	f.advertising = false
	ev := f.events
	f.mu.Unlock()
	ev.AdvStopped()
	return nil
}

func (f *FakeStack) Notify(conn Conn, char Characteristic, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notifyErr != nil {
		return f.notifyErr
	}
	f.notifies = append(f.notifies, Notification{
		Conn:  conn,
		Char:  char,
		Value: append([]byte(nil), value...),
	})
	return nil
}

func (f *FakeStack) Disconnect(conn Conn) error {
	f.mu.Lock()
	f.dropped = append(f.dropped, conn)
	ev := f.events
	f.mu.Unlock()
	ev.Disconnected(conn)
	return nil
}
