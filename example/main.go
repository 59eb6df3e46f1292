// Command example wires the summary cache against the in-memory mailbox
// and walks through a typical read/modify/read cycle.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/emersion/go-ical"

	"github.com/cyp0633/calsummary/caldata"
	"github.com/cyp0633/calsummary/store"
	"github.com/cyp0633/calsummary/store/memory"
	"github.com/cyp0633/calsummary/summary"
)

const (
	account    = "alice"
	calendarID = 10
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Seed the in-memory mailbox with an account, a calendar and a few
	// appointments.
	mbox := setupMailbox()

	cfg := summary.DefaultConfig
	mgr, err := summary.NewManager(cfg, mbox, memory.Permissions{}, summary.Options{Logger: logger})
	if err != nil {
		log.Fatalf("start summary cache: %v", err)
	}
	defer mgr.Close()

	// Mailbox change notifications drive cache invalidation.
	mbox.AddListener(mgr)

	ctx := context.Background()
	now := time.Now().UTC()
	start := now.AddDate(0, 0, -7)
	end := now.AddDate(0, 0, 21)

	// First read scans the mailbox and fills the cache.
	printSummary(ctx, mgr, start, end)

	// Rewriting an event marks it stale; the next read refreshes just
	// that item.
	_, err = mbox.PutComponent(account, calendarID, event(
		"standup", "Daily standup (moved)", now.Add(26*time.Hour), 15*time.Minute))
	if err != nil {
		log.Fatalf("update event: %v", err)
	}
	printSummary(ctx, mgr, start, end)

	set, err := mgr.GetFolderSet(ctx, account)
	if err != nil {
		log.Fatalf("folder set: %v", err)
	}
	tags, err := mgr.GetCtags(ctx, account, set.FolderIDs)
	if err != nil {
		log.Fatalf("ctags: %v", err)
	}
	fmt.Println("folder change tags:")
	for id, info := range tags {
		fmt.Printf("  folder %d: %s\n", id, info.Ctag)
	}

	stats := mgr.Stats()
	fmt.Printf("cache: %d entries, %d evictions\n", stats.Entries, stats.Evictions)
}

func printSummary(ctx context.Context, mgr *summary.Manager, start, end time.Time) {
	data, _, err := mgr.GetSummary(ctx, account, calendarID, caldata.ItemAppointment, start, end, true)
	if err != nil {
		log.Fatalf("summary: %v", err)
	}
	if data == nil {
		fmt.Println("no summary available")
		return
	}
	fmt.Printf("folder %d at modseq %d, %d items:\n", data.FolderID, data.ModSeq, data.NumItems())
	for _, item := range data.Items {
		for _, inst := range item.Instances {
			full := inst.Resolve(item.Default)
			when, _ := full.EffectiveStart(item.Default)
			fmt.Printf("  %s  %s\n", when.Format(time.RFC3339), full.Summary.OrEmpty())
		}
	}
}

func setupMailbox() *memory.Store {
	mbox := memory.New()
	mbox.CreateAccount(account)
	if err := mbox.AddFolder(account, &store.FolderInfo{
		ID: calendarID, ParentID: 1, View: caldata.ItemAppointment, Path: "/Calendar",
	}); err != nil {
		log.Fatalf("add folder: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Hour)
	standup := event("standup", "Daily standup", now.Add(25*time.Hour), 15*time.Minute)
	standup.Props.SetText(ical.PropRecurrenceRule, "FREQ=DAILY;COUNT=14")
	for _, comp := range []*ical.Component{
		standup,
		event("kickoff", "Project kickoff", now.Add(49*time.Hour), time.Hour),
		event("review", "Quarterly review", now.Add(96*time.Hour), 2*time.Hour),
	} {
		if _, err := mbox.PutComponent(account, calendarID, comp); err != nil {
			log.Fatalf("seed event: %v", err)
		}
	}
	return mbox
}

func event(uid, summaryText string, start time.Time, d time.Duration) *ical.Component {
	comp := ical.NewComponent(ical.CompEvent)
	comp.Props.SetText(ical.PropUID, uid)
	comp.Props.SetText(ical.PropSummary, summaryText)
	comp.Props.SetDateTime(ical.PropDateTimeStart, start)
	comp.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(d))
	return comp
}
