package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"anonchat_server/models"
)

// fakeSender records every delivered text per user and can be told to refuse
// delivery for specific users.
type fakeSender struct {
	mu   sync.Mutex
	sent map[string][]string
	fail map[string]bool
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[string][]string), fail: make(map[string]bool)}
}

func (f *fakeSender) SendToUser(userID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[userID] {
		return errors.New("transport refused delivery")
	}
	f.sent[userID] = append(f.sent[userID], text)
	return nil
}

func (f *fakeSender) lastTo(userID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	texts := f.sent[userID]
	if len(texts) == 0 {
		return ""
	}
	return texts[len(texts)-1]
}

type sinkRecord struct {
	sender, recipient, text string
}

type fakeSink struct {
	mu      sync.Mutex
	records []sinkRecord
}

func (f *fakeSink) Record(ctx context.Context, senderID, recipientID, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, sinkRecord{senderID, recipientID, text})
	return nil
}

type fakePairStore struct {
	mu        sync.Mutex
	loaded    [][2]string
	persisted [][2]string
	persists  int
}

func (f *fakePairStore) LoadActivePairs(ctx context.Context) ([][2]string, error) {
	return f.loaded, nil
}

func (f *fakePairStore) PersistActivePairs(ctx context.Context, pairs [][2]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persisted = pairs
	f.persists++
	return nil
}

func newTestService() (*PairingService, *fakeSender, *fakeSink, *fakePairStore) {
	sender := newFakeSender()
	sink := &fakeSink{}
	store := &fakePairStore{}
	return NewPairingService(sender, sink, store), sender, sink, store
}

func mustConnect(t *testing.T, ps *PairingService, id string) {
	t.Helper()
	if err := ps.Connect(context.Background(), id); err != nil {
		t.Fatalf("Connect(%s) failed: %v", id, err)
	}
}

func assertPaired(t *testing.T, ps *PairingService, a, b string) {
	t.Helper()
	partnerOfA, ok := ps.PartnerOf(a)
	if !ok || partnerOfA != b {
		t.Fatalf("PartnerOf(%s) = %q,%v, want %q", a, partnerOfA, ok, b)
	}
	partnerOfB, ok := ps.PartnerOf(b)
	if !ok || partnerOfB != a {
		t.Fatalf("PartnerOf(%s) = %q,%v, want %q (pairing must be mutual)", b, partnerOfB, ok, a)
	}
}

func assertIdle(t *testing.T, ps *PairingService, id string) {
	t.Helper()
	user, _ := ps.Registry.Lookup(id)
	if user == nil || user.State != models.StateIdle {
		t.Fatalf("user %s is not idle", id)
	}
	if user.PartnerID != "" {
		t.Fatalf("idle user %s still holds partner %q", id, user.PartnerID)
	}
}

func TestConnectPairsFirstWaiting(t *testing.T) {
	ps, sender, _, _ := newTestService()

	mustConnect(t, ps, "alice")
	if got := sender.lastTo("alice"); got != NoticeWaiting {
		t.Errorf("alice notice = %q, want waiting notice", got)
	}
	if !ps.Queue.Contains("alice") {
		t.Fatal("alice not queued after lone Connect")
	}

	mustConnect(t, ps, "bob")
	assertPaired(t, ps, "alice", "bob")
	if ps.Queue.Len() != 0 {
		t.Errorf("queue length = %d after match, want 0", ps.Queue.Len())
	}
	for _, id := range []string{"alice", "bob"} {
		if got := sender.lastTo(id); got != NoticeConnected {
			t.Errorf("%s notice = %q, want connected notice", id, got)
		}
	}
}

func TestConnectFIFO(t *testing.T) {
	ps, _, _, _ := newTestService()

	mustConnect(t, ps, "first")
	mustConnect(t, ps, "second") // pairs with first
	mustConnect(t, ps, "third")
	mustConnect(t, ps, "fourth") // pairs with third

	assertPaired(t, ps, "first", "second")
	assertPaired(t, ps, "third", "fourth")
}

func TestConnectRejections(t *testing.T) {
	ps, _, _, _ := newTestService()
	ctx := context.Background()

	mustConnect(t, ps, "alice")
	if err := ps.Connect(ctx, "alice"); !errors.Is(err, ErrAlreadyWaiting) {
		t.Errorf("Connect while waiting = %v, want ErrAlreadyWaiting", err)
	}

	mustConnect(t, ps, "bob")
	if err := ps.Connect(ctx, "alice"); !errors.Is(err, ErrAlreadyInChat) {
		t.Errorf("Connect while active = %v, want ErrAlreadyInChat", err)
	}
}

func TestStopBreaksPairing(t *testing.T) {
	ps, sender, _, store := newTestService()
	ctx := context.Background()

	mustConnect(t, ps, "alice")
	mustConnect(t, ps, "bob")

	if err := ps.Stop(ctx, "bob"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	assertIdle(t, ps, "alice")
	assertIdle(t, ps, "bob")

	alice, _ := ps.Registry.Lookup("alice")
	bob, _ := ps.Registry.Lookup("bob")
	if alice.LastPartnerID != "bob" || bob.LastPartnerID != "alice" {
		t.Error("LastPartnerID not recorded symmetrically on Stop")
	}
	if got := sender.lastTo("alice"); got != NoticePartnerLeft {
		t.Errorf("alice notice = %q, want partner-left notice", got)
	}
	if got := sender.lastTo("bob"); got != NoticeLeftChat {
		t.Errorf("bob notice = %q, want left-chat notice", got)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.persisted) != 0 {
		t.Errorf("snapshot after Stop = %v, want empty", store.persisted)
	}
}

func TestStopWhileWaiting(t *testing.T) {
	ps, sender, _, _ := newTestService()
	ctx := context.Background()

	mustConnect(t, ps, "alice")
	if err := ps.Stop(ctx, "alice"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	assertIdle(t, ps, "alice")
	if ps.Queue.Contains("alice") {
		t.Error("alice still queued after Stop")
	}
	if got := sender.lastTo("alice"); got != NoticeStoppedWaiting {
		t.Errorf("notice = %q, want stopped-waiting notice", got)
	}
}

func TestStopWhileIdleIsNoop(t *testing.T) {
	ps, sender, _, _ := newTestService()

	if err := ps.Stop(context.Background(), "alice"); err != nil {
		t.Fatalf("Stop on idle user = %v, want nil", err)
	}
	if got := sender.lastTo("alice"); got != NoticeNotConnected {
		t.Errorf("notice = %q, want not-connected notice", got)
	}
}

func TestStopLeavesThirdPartyWaiting(t *testing.T) {
	ps, _, _, _ := newTestService()
	ctx := context.Background()

	mustConnect(t, ps, "alice")
	mustConnect(t, ps, "bob")
	mustConnect(t, ps, "carol") // empty queue, carol waits

	if err := ps.Stop(ctx, "alice"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	assertIdle(t, ps, "alice")
	assertIdle(t, ps, "bob")

	carol, _ := ps.Registry.Lookup("carol")
	if carol.State != models.StateWaiting || !ps.Queue.Contains("carol") {
		t.Error("carol should be unaffected and still waiting")
	}
}

func TestSkipSymmetry(t *testing.T) {
	ps, sender, _, _ := newTestService()
	ctx := context.Background()

	mustConnect(t, ps, "alice")
	mustConnect(t, ps, "bob")

	if err := ps.Skip(ctx, "bob"); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}

	alice, _ := ps.Registry.Lookup("alice")
	bob, _ := ps.Registry.Lookup("bob")
	if alice.PartnerID != "" || bob.PartnerID != "" {
		t.Error("Skip left a stale partner id")
	}
	if alice.LastPartnerID != "bob" || bob.LastPartnerID != "alice" {
		t.Error("LastPartnerID not recorded symmetrically on Skip")
	}
	// Queue was empty, so the skipper waits for the next connector.
	if bob.State != models.StateWaiting || !ps.Queue.Contains("bob") {
		t.Error("skipper should be enqueued when nobody is waiting")
	}
	if got := sender.lastTo("alice"); got != NoticePartnerSkipped {
		t.Errorf("alice notice = %q, want partner-skipped notice", got)
	}
	if got := sender.lastTo("bob"); got != NoticeNoPartnerYet {
		t.Errorf("bob notice = %q, want no-partner notice", got)
	}
}

func TestSkipMatchesQueueHead(t *testing.T) {
	ps, _, _, _ := newTestService()
	ctx := context.Background()

	mustConnect(t, ps, "alice")
	mustConnect(t, ps, "bob")
	mustConnect(t, ps, "carol") // waiting

	if err := ps.Skip(ctx, "alice"); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	assertPaired(t, ps, "alice", "carol")
	assertIdle(t, ps, "bob")
}

func TestSkipRejections(t *testing.T) {
	ps, _, _, _ := newTestService()
	ctx := context.Background()

	if err := ps.Skip(ctx, "alice"); !errors.Is(err, ErrNotInChat) {
		t.Errorf("Skip while idle = %v, want ErrNotInChat", err)
	}
	mustConnect(t, ps, "alice")
	if err := ps.Skip(ctx, "alice"); !errors.Is(err, ErrAlreadyWaiting) {
		t.Errorf("Skip while waiting = %v, want ErrAlreadyWaiting", err)
	}
}

func TestRematchRequiresPriorPartner(t *testing.T) {
	ps, _, _, _ := newTestService()

	if err := ps.RequestRematch(context.Background(), "alice"); !errors.Is(err, ErrNoPriorPartner) {
		t.Errorf("RequestRematch = %v, want ErrNoPriorPartner", err)
	}
}

func TestRematchIdempotentUntilCleared(t *testing.T) {
	ps, sender, _, _ := newTestService()
	ctx := context.Background()

	mustConnect(t, ps, "alice")
	mustConnect(t, ps, "bob")
	if err := ps.Skip(ctx, "bob"); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}

	if err := ps.RequestRematch(ctx, "alice"); err != nil {
		t.Fatalf("first RequestRematch failed: %v", err)
	}
	if got := sender.lastTo("alice"); got != NoticeRematchSent {
		t.Errorf("requester notice = %q, want rematch-sent notice", got)
	}
	if got := sender.lastTo("bob"); got != NoticeRematchWanted {
		t.Errorf("partner notice = %q, want rematch-wanted notice", got)
	}

	if err := ps.RequestRematch(ctx, "alice"); !errors.Is(err, ErrRequestAlreadyPending) {
		t.Errorf("second RequestRematch = %v, want ErrRequestAlreadyPending", err)
	}
}

func TestMutualRematchEitherOrder(t *testing.T) {
	for _, order := range [][2]string{{"alice", "bob"}, {"bob", "alice"}} {
		ps, sender, _, _ := newTestService()
		ctx := context.Background()

		mustConnect(t, ps, "alice")
		mustConnect(t, ps, "bob")
		if err := ps.Stop(ctx, "alice"); err != nil {
			t.Fatalf("Stop failed: %v", err)
		}

		if err := ps.RequestRematch(ctx, order[0]); err != nil {
			t.Fatalf("RequestRematch(%s) failed: %v", order[0], err)
		}
		if err := ps.RequestRematch(ctx, order[1]); err != nil {
			t.Fatalf("RequestRematch(%s) failed: %v", order[1], err)
		}

		assertPaired(t, ps, "alice", "bob")
		for _, id := range []string{"alice", "bob"} {
			user, _ := ps.Registry.Lookup(id)
			if user.RematchRequested {
				t.Errorf("%s rematch flag not cleared", id)
			}
			if user.LastPartnerID != "" {
				t.Errorf("%s LastPartnerID not cleared by mutual rematch", id)
			}
			if got := sender.lastTo(id); got != NoticeRematched {
				t.Errorf("%s notice = %q, want rematched notice", id, got)
			}
		}
	}
}

func TestMutualRematchPartnerBusy(t *testing.T) {
	ps, _, _, _ := newTestService()
	ctx := context.Background()

	mustConnect(t, ps, "alice")
	mustConnect(t, ps, "bob")
	if err := ps.Skip(ctx, "alice"); err != nil { // both separated, alice waits
		t.Fatalf("Skip failed: %v", err)
	}
	mustConnect(t, ps, "carol") // alice now active with carol

	// Alice flags a rematch toward bob while chatting with carol.
	if err := ps.RequestRematch(ctx, "alice"); err != nil {
		t.Fatalf("RequestRematch(alice) failed: %v", err)
	}

	// Bob completes the mutual request, but alice is busy: reject with no
	// state change.
	err := ps.RequestRematch(ctx, "bob")
	if !errors.Is(err, ErrPartnerBusy) {
		t.Fatalf("RequestRematch(bob) = %v, want ErrPartnerBusy", err)
	}
	assertPaired(t, ps, "alice", "carol")

	alice, _ := ps.Registry.Lookup("alice")
	bob, _ := ps.Registry.Lookup("bob")
	if !alice.RematchRequested {
		t.Error("alice's pending flag was mutated by the rejected request")
	}
	if bob.RematchRequested {
		t.Error("bob's flag was set by the rejected request")
	}
	if bob.LastPartnerID != "alice" {
		t.Error("bob's LastPartnerID was mutated by the rejected request")
	}
}

func TestStopFastPathRematch(t *testing.T) {
	ps, sender, _, _ := newTestService()
	ctx := context.Background()

	// Pair, separate, re-pair: LastPartnerID now points at the current
	// partner for both sides.
	mustConnect(t, ps, "alice")
	mustConnect(t, ps, "bob")
	if err := ps.Stop(ctx, "alice"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	mustConnect(t, ps, "alice")
	mustConnect(t, ps, "bob")
	assertPaired(t, ps, "alice", "bob")

	// Bob places a standing rematch offer while the chat is live.
	if err := ps.RequestRematch(ctx, "bob"); err != nil {
		t.Fatalf("RequestRematch failed: %v", err)
	}

	// Alice stopping accepts the standing offer: immediate re-pair.
	if err := ps.Stop(ctx, "alice"); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	assertPaired(t, ps, "alice", "bob")
	for _, id := range []string{"alice", "bob"} {
		user, _ := ps.Registry.Lookup(id)
		if user.RematchRequested {
			t.Errorf("%s rematch flag not consumed by fast-path", id)
		}
		if got := sender.lastTo(id); got != NoticeRematched {
			t.Errorf("%s notice = %q, want rematched notice", id, got)
		}
	}
}

func TestRelayMessage(t *testing.T) {
	ps, sender, sink, _ := newTestService()
	ctx := context.Background()

	if _, err := ps.RelayMessage(ctx, "alice", "hello?"); !errors.Is(err, ErrNotInChat) {
		t.Fatalf("RelayMessage while idle = %v, want ErrNotInChat", err)
	}

	mustConnect(t, ps, "alice")
	mustConnect(t, ps, "bob")

	delivered, err := ps.RelayMessage(ctx, "alice", "hello bob")
	if err != nil {
		t.Fatalf("RelayMessage failed: %v", err)
	}
	if !delivered {
		t.Error("delivered = false, want true")
	}
	if got := sender.lastTo("bob"); got != "hello bob" {
		t.Errorf("bob received %q, want the verbatim text", got)
	}

	sink.mu.Lock()
	if len(sink.records) != 1 || sink.records[0] != (sinkRecord{"alice", "bob", "hello bob"}) {
		t.Errorf("sink records = %v, want one alice->bob record", sink.records)
	}
	sink.mu.Unlock()
}

func TestRelayDeliveryFailureKeepsState(t *testing.T) {
	ps, sender, _, _ := newTestService()
	ctx := context.Background()

	mustConnect(t, ps, "alice")
	mustConnect(t, ps, "bob")
	sender.mu.Lock()
	sender.fail["bob"] = true
	sender.mu.Unlock()

	delivered, err := ps.RelayMessage(ctx, "alice", "anyone there?")
	if err != nil {
		t.Fatalf("RelayMessage = %v, want nil (partial failure, not error)", err)
	}
	if delivered {
		t.Error("delivered = true despite transport refusal")
	}
	assertPaired(t, ps, "alice", "bob")
}

func TestSnapshotPersistedOnPairing(t *testing.T) {
	ps, _, _, store := newTestService()

	mustConnect(t, ps, "alice")
	mustConnect(t, ps, "bob")

	store.mu.Lock()
	defer store.mu.Unlock()
	if store.persists == 0 {
		t.Fatal("pairing did not persist a snapshot")
	}
	if len(store.persisted) != 1 || store.persisted[0] != [2]string{"alice", "bob"} {
		t.Errorf("persisted snapshot = %v, want [[alice bob]]", store.persisted)
	}
}

func TestLoadSnapshotRestoresPairings(t *testing.T) {
	sender := newFakeSender()
	store := &fakePairStore{loaded: [][2]string{{"alice", "bob"}, {"carol", "carol"}}}
	ps := NewPairingService(sender, &fakeSink{}, store)

	if err := ps.LoadSnapshot(context.Background()); err != nil {
		t.Fatalf("LoadSnapshot failed: %v", err)
	}
	assertPaired(t, ps, "alice", "bob")
	if _, ok := ps.Registry.Lookup("carol"); ok {
		t.Error("degenerate self-pair was restored")
	}
}

func TestConcurrentConnects(t *testing.T) {
	const n = 25 // odd on purpose: exactly one user must end up waiting
	ps, _, _, _ := newTestService()
	ctx := context.Background()

	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('a'+i%26)) + string(rune('0'+i/26)) + "user"
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := ps.Connect(ctx, id); err != nil {
				t.Errorf("Connect(%s) failed: %v", id, err)
			}
		}(id)
	}
	wg.Wait()

	active, waiting := 0, 0
	for _, id := range ids {
		user, ok := ps.Registry.Lookup(id)
		if !ok {
			t.Fatalf("user %s missing from registry", id)
		}
		switch user.State {
		case models.StateActive:
			active++
			partner, _ := ps.Registry.Lookup(user.PartnerID)
			if partner == nil || partner.PartnerID != id {
				t.Fatalf("pairing not mutual for %s", id)
			}
		case models.StateWaiting:
			waiting++
		default:
			t.Fatalf("user %s in unexpected state %q", id, user.State)
		}
	}
	if active != n-1 || waiting != 1 {
		t.Errorf("active=%d waiting=%d, want %d active and 1 waiting", active, waiting, n-1)
	}
	if got := len(ps.ActivePairs()); got != (n-1)/2 {
		t.Errorf("ActivePairs() = %d pairs, want %d", got, (n-1)/2)
	}
}

func TestFullScenario(t *testing.T) {
	ps, sender, _, _ := newTestService()
	ctx := context.Background()

	// A connects and waits; B connects and both are paired.
	mustConnect(t, ps, "A")
	if got := sender.lastTo("A"); got != NoticeWaiting {
		t.Fatalf("A notice = %q, want waiting", got)
	}
	mustConnect(t, ps, "B")
	assertPaired(t, ps, "A", "B")

	// B skips: nobody waiting, so B queues and A goes idle with symmetric
	// last-partner records.
	if err := ps.Skip(ctx, "B"); err != nil {
		t.Fatalf("Skip failed: %v", err)
	}
	a, _ := ps.Registry.Lookup("A")
	b, _ := ps.Registry.Lookup("B")
	if a.State != models.StateIdle || b.State != models.StateWaiting {
		t.Fatalf("states after skip: A=%s B=%s", a.State, b.State)
	}
	if a.LastPartnerID != "B" || b.LastPartnerID != "A" {
		t.Fatal("last partners not symmetric after skip")
	}

	// A requests a rematch, then B reciprocates: both re-paired, flags
	// cleared, B pulled out of the queue.
	if err := ps.RequestRematch(ctx, "A"); err != nil {
		t.Fatalf("RequestRematch(A) failed: %v", err)
	}
	if err := ps.RequestRematch(ctx, "B"); err != nil {
		t.Fatalf("RequestRematch(B) failed: %v", err)
	}
	assertPaired(t, ps, "A", "B")
	if ps.Queue.Contains("B") {
		t.Error("B still queued after mutual rematch")
	}
	if a.RematchRequested || b.RematchRequested {
		t.Error("rematch flags not cleared after mutual rematch")
	}
}
