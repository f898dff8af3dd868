package services

import (
	"context"
	"log"
	"sync"

	"anonchat_server/models"
)

// Notices sent to users as transitions commit. The command menu mirrors the
// commands the dispatcher accepts.
const (
	NoticeConnected = "You have been connected to a new chat! Use /stop to leave, " +
		"/skip to find a new partner, or /rematch to reconnect with your last partner."
	NoticeWaiting        = "You are now waiting for a chat partner."
	NoticeLeftChat       = "You have left the chat. Use /connect to find a new partner."
	NoticePartnerLeft    = "Your chat partner has left the chat. You can use /rematch to reconnect or /connect to find a new partner."
	NoticePartnerSkipped = "Your chat partner has skipped to a new chat. You can use /rematch to reconnect or /connect to find a new partner."
	NoticeStoppedWaiting = "You are no longer waiting for a chat partner."
	NoticeNotConnected   = "You are not connected to any chat."
	NoticeNoPartnerYet   = "No new chat partner is available at the moment. Please wait for someone to connect."
	NoticeRematched      = "You have been rematched with your last partner!"
	NoticeRematchSent    = "Rematch request sent. Waiting for your partner to confirm."
	NoticeRematchWanted  = "Your partner has requested a rematch. Use /rematch to reconnect or /connect to find a new partner."
)

// Notice is one outbound text queued during a transition and delivered only
// after the state mutex is released.
type Notice struct {
	UserID string
	Text   string
}

// PairingService is the pairing and relay state machine. Every transition
// runs as one atomic step under a single mutex guarding the registry, the
// waiting queue and all pairing state. Nothing blocks while the mutex is
// held: outbound sends, conversation-log writes and snapshot persistence all
// happen after unlock, and their failures never roll back a committed
// transition.
type PairingService struct {
	mu       sync.Mutex
	Registry *UserRegistry
	Queue    *WaitingQueue
	Sender   Sender
	Sink     ConversationSink
	Pairs    PairStore
}

func NewPairingService(sender Sender, sink ConversationSink, pairs PairStore) *PairingService {
	return &PairingService{
		Registry: NewUserRegistry(),
		Queue:    NewWaitingQueue(),
		Sender:   sender,
		Sink:     sink,
		Pairs:    pairs,
	}
}

// transition is the accumulated outcome of one locked step.
type transition struct {
	notices []Notice
	dirty   bool // active-pair set changed; snapshot must be rewritten
}

func (t *transition) notify(userID, text string) {
	t.notices = append(t.notices, Notice{UserID: userID, Text: text})
}

// commit delivers buffered notices and rewrites the pairing snapshot. Called
// strictly after the mutex is released.
func (ps *PairingService) commit(ctx context.Context, t *transition, snapshot [][2]string) {
	for _, n := range t.notices {
		if err := ps.Sender.SendToUser(n.UserID, n.Text); err != nil {
			log.Printf("⚠️ Failed to notify user %s: %v", n.UserID, err)
		}
	}
	if t.dirty && ps.Pairs != nil {
		if err := ps.Pairs.PersistActivePairs(ctx, snapshot); err != nil {
			log.Printf("⚠️ Failed to persist pairing snapshot: %v", err)
		}
	}
}

// Connect moves an idle user into a pairing with the head of the waiting
// queue, or enqueues them when nobody is waiting.
func (ps *PairingService) Connect(ctx context.Context, userID string) error {
	ps.mu.Lock()
	t := &transition{}
	err := ps.connectLocked(userID, t)
	snapshot := ps.snapshotIfDirtyLocked(t)
	ps.mu.Unlock()

	if err != nil {
		return err
	}
	ps.commit(ctx, t, snapshot)
	return nil
}

func (ps *PairingService) connectLocked(userID string, t *transition) error {
	user := ps.Registry.Get(userID)
	switch user.State {
	case models.StateActive:
		return ErrAlreadyInChat
	case models.StateWaiting:
		return ErrAlreadyWaiting
	}

	if partnerID, ok := ps.Queue.DequeueHead(); ok && partnerID != userID {
		partner := ps.Registry.Get(partnerID)
		ps.pairLocked(user, partner)
		t.dirty = true
		t.notify(user.UserID, NoticeConnected)
		t.notify(partner.UserID, NoticeConnected)
		return nil
	}

	user.State = models.StateWaiting
	if err := ps.Queue.Enqueue(user.UserID); err != nil {
		return err
	}
	t.notify(user.UserID, NoticeWaiting)
	return nil
}

// Stop ends the user's current chat, or removes them from the waiting queue.
// Stopping on a partner with a standing rematch request immediately re-pairs
// the two.
func (ps *PairingService) Stop(ctx context.Context, userID string) error {
	ps.mu.Lock()
	t := &transition{}
	err := ps.stopLocked(userID, t)
	snapshot := ps.snapshotIfDirtyLocked(t)
	ps.mu.Unlock()

	if err != nil {
		return err
	}
	ps.commit(ctx, t, snapshot)
	return nil
}

func (ps *PairingService) stopLocked(userID string, t *transition) error {
	user := ps.Registry.Get(userID)
	switch user.State {
	case models.StateActive:
		partner := ps.Registry.Get(user.PartnerID)
		ps.breakPairLocked(user, partner)
		t.dirty = true
		t.notify(partner.UserID, NoticePartnerLeft)
		if partner.RematchRequested {
			ps.pairLocked(user, partner)
			t.notify(user.UserID, NoticeRematched)
			t.notify(partner.UserID, NoticeRematched)
		} else {
			t.notify(user.UserID, NoticeLeftChat)
		}
		return nil
	case models.StateWaiting:
		ps.Queue.Remove(user.UserID)
		user.State = models.StateIdle
		t.notify(user.UserID, NoticeStoppedWaiting)
		return nil
	default:
		t.notify(user.UserID, NoticeNotConnected)
		return nil
	}
}

// Skip ends the current chat and immediately looks for a new partner.
func (ps *PairingService) Skip(ctx context.Context, userID string) error {
	ps.mu.Lock()
	t := &transition{}
	err := ps.skipLocked(userID, t)
	snapshot := ps.snapshotIfDirtyLocked(t)
	ps.mu.Unlock()

	if err != nil {
		return err
	}
	ps.commit(ctx, t, snapshot)
	return nil
}

func (ps *PairingService) skipLocked(userID string, t *transition) error {
	user := ps.Registry.Get(userID)
	switch user.State {
	case models.StateWaiting:
		return ErrAlreadyWaiting
	case models.StateIdle:
		return ErrNotInChat
	}

	partner := ps.Registry.Get(user.PartnerID)
	ps.breakPairLocked(user, partner)
	t.dirty = true
	t.notify(partner.UserID, NoticePartnerSkipped)

	if partner.RematchRequested {
		ps.pairLocked(user, partner)
		t.notify(user.UserID, NoticeRematched)
		t.notify(partner.UserID, NoticeRematched)
		return nil
	}

	if ps.Queue.Len() > 0 {
		// Internal re-run of the connect transition, inside the same lock.
		return ps.connectLocked(user.UserID, t)
	}

	user.State = models.StateWaiting
	if err := ps.Queue.Enqueue(user.UserID); err != nil {
		return err
	}
	t.notify(user.UserID, NoticeNoPartnerYet)
	return nil
}

// RequestRematch records a rematch offer toward the user's most recent
// partner, or completes the pairing when the offer is already mutual.
func (ps *PairingService) RequestRematch(ctx context.Context, userID string) error {
	ps.mu.Lock()
	t := &transition{}
	err := ps.requestRematchLocked(userID, t)
	snapshot := ps.snapshotIfDirtyLocked(t)
	ps.mu.Unlock()

	if err != nil {
		return err
	}
	ps.commit(ctx, t, snapshot)
	return nil
}

func (ps *PairingService) requestRematchLocked(userID string, t *transition) error {
	user := ps.Registry.Get(userID)
	if user.LastPartnerID == "" {
		return ErrNoPriorPartner
	}
	if user.RematchRequested {
		return ErrRequestAlreadyPending
	}

	partner := ps.Registry.Get(user.LastPartnerID)
	if partner.RematchRequested {
		// Mutual offer. Re-pairing is rejected without mutation when either
		// side is already active elsewhere.
		if partner.State == models.StateActive {
			return ErrPartnerBusy
		}
		if user.State == models.StateActive {
			return ErrAlreadyInChat
		}
		user.LastPartnerID = ""
		partner.LastPartnerID = ""
		ps.pairLocked(user, partner)
		t.dirty = true
		t.notify(user.UserID, NoticeRematched)
		t.notify(partner.UserID, NoticeRematched)
		return nil
	}

	user.RematchRequested = true
	t.notify(user.UserID, NoticeRematchSent)
	t.notify(partner.UserID, NoticeRematchWanted)
	return nil
}

// RelayMessage forwards text verbatim to the sender's current partner and
// appends the exchange to the conversation log. The returned bool reports
// whether the transport accepted the delivery; a refused delivery is a
// partial failure, not a state rollback.
func (ps *PairingService) RelayMessage(ctx context.Context, userID, text string) (bool, error) {
	ps.mu.Lock()
	user := ps.Registry.Get(userID)
	if user.State != models.StateActive {
		ps.mu.Unlock()
		return false, ErrNotInChat
	}
	partnerID := user.PartnerID
	ps.mu.Unlock()

	delivered := true
	if err := ps.Sender.SendToUser(partnerID, text); err != nil {
		log.Printf("⚠️ Failed to relay message from %s to %s: %v", userID, partnerID, err)
		delivered = false
	}
	if ps.Sink != nil {
		if err := ps.Sink.Record(ctx, userID, partnerID, text); err != nil {
			log.Printf("⚠️ Failed to record conversation message: %v", err)
		}
	}
	return delivered, nil
}

// LoadSnapshot restores persisted pairings at startup. Each reloaded pair
// becomes Active with mutual partner ids; pairs whose members are no longer
// both idle are skipped.
func (ps *PairingService) LoadSnapshot(ctx context.Context) error {
	if ps.Pairs == nil {
		return nil
	}
	pairs, err := ps.Pairs.LoadActivePairs(ctx)
	if err != nil {
		return err
	}

	ps.mu.Lock()
	defer ps.mu.Unlock()
	restored := 0
	for _, pair := range pairs {
		if pair[0] == pair[1] || pair[0] == "" || pair[1] == "" {
			continue
		}
		a := ps.Registry.Get(pair[0])
		b := ps.Registry.Get(pair[1])
		if a.State != models.StateIdle || b.State != models.StateIdle {
			continue
		}
		ps.pairLocked(a, b)
		restored++
	}
	log.Printf("✅ Restored %d active pairings from snapshot", restored)
	return nil
}

// ActivePairs returns the current pairing set, one entry per pair.
func (ps *PairingService) ActivePairs() [][2]string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.activePairsLocked()
}

// KnownUserIDs returns every user id the registry has seen.
func (ps *PairingService) KnownUserIDs() []string {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.Registry.AllKnownUserIDs()
}

// PartnerOf reports the user's current partner, if any.
func (ps *PairingService) PartnerOf(userID string) (string, bool) {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	user, ok := ps.Registry.Lookup(userID)
	if !ok || user.State != models.StateActive {
		return "", false
	}
	return user.PartnerID, true
}

// pairLocked makes a and b mutual Active partners. Both are pulled out of
// the waiting queue first so queue membership and Waiting state never
// diverge, and any standing rematch flags are consumed by the new pairing.
func (ps *PairingService) pairLocked(a, b *models.User) {
	ps.Queue.Remove(a.UserID)
	ps.Queue.Remove(b.UserID)
	a.State = models.StateActive
	b.State = models.StateActive
	a.PartnerID = b.UserID
	b.PartnerID = a.UserID
	a.RematchRequested = false
	b.RematchRequested = false
}

// breakPairLocked dissolves the pairing between a and b, recording each as
// the other's last partner for a later rematch.
func (ps *PairingService) breakPairLocked(a, b *models.User) {
	a.State = models.StateIdle
	b.State = models.StateIdle
	a.PartnerID = ""
	b.PartnerID = ""
	a.LastPartnerID = b.UserID
	b.LastPartnerID = a.UserID
}

func (ps *PairingService) snapshotIfDirtyLocked(t *transition) [][2]string {
	if !t.dirty {
		return nil
	}
	return ps.activePairsLocked()
}

func (ps *PairingService) activePairsLocked() [][2]string {
	var pairs [][2]string
	for _, id := range ps.Registry.AllKnownUserIDs() {
		user, _ := ps.Registry.Lookup(id)
		if user.State == models.StateActive && user.UserID < user.PartnerID {
			pairs = append(pairs, [2]string{user.UserID, user.PartnerID})
		}
	}
	return pairs
}
