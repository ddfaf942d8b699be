package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/oruby/crb"
	"github.com/oruby/crb/heapdump"
)

// record is the payload of the Record objects the workload allocates
type record struct {
	name crb.Value
	tags crb.Value
}

func (r *record) Mark(m crb.Marker) {
	m.MarkMovable(r.name)
	m.MarkMovable(r.tags)
}

func (r *record) Compact(c crb.Compactor) {
	r.name = c.Location(r.name)
	r.tags = c.Location(r.tags)
}

func (r *record) Memsize() int { return 16 }

var recordType = crb.NewDataType[record]("crbstat/record")

// workload builds args.records Record objects, each holding a name, a
// copy-on-write slice of a shared tag array and a bignum, drops every
// other one and snapshots the heap at each stage
func workload(ctx context.Context, st *crb.State, store *heapdump.Store, args *Args) error {
	log := st.Log()
	if _, err := recordType.DefineClass(st, "Record", crb.RClass{}); err != nil {
		return err
	}

	var snaps []heapdump.Snapshot
	take := func(stage string) error {
		st.FullGC()
		s, err := store.Take(ctx, st, args.label+"/"+stage)
		if err != nil {
			return err
		}
		log.Info("snapshot",
			zap.String("id", s.ID.String()),
			zap.String("label", s.Label),
			zap.Int("objects", s.Objects))
		snaps = append(snaps, s)
		return nil
	}
	if err := take("boot"); err != nil {
		return err
	}

	tags, err := crb.ArrayTryFromSeq(st, func(yield func(string, error) bool) {
		for _, t := range []string{"alpha", "beta", "gamma", "delta"} {
			if !yield(t, nil) {
				return
			}
		}
	})
	if err != nil {
		return err
	}
	records := st.AryNew()
	big := st.IntegerFromInt64(crb.FixnumMax)
	for i := range args.records {
		_, err := st.Protect(func() (crb.Value, error) {
			sub, _ := tags.Subseq(i%2, 2)
			r := crb.WrapData(st, recordType, &record{
				name: st.StrNew(fmt.Sprintf("record-%d", i)).Value(),
				tags: sub.Value(),
			})
			if err := r.IvarSet("@weight", big.Add(st.IntegerFromInt64(int64(i)))); err != nil {
				return crb.Nil, err
			}
			return crb.Nil, records.Push(r)
		})
		if err != nil {
			return err
		}
	}
	if err := take("built"); err != nil {
		return err
	}

	kept := st.AryNew()
	for i, v := range records.All() {
		if i%2 == 0 {
			if err := kept.Push(v); err != nil {
				return err
			}
		}
	}
	if err := records.Clear(); err != nil {
		return err
	}
	if err := take("dropped"); err != nil {
		return err
	}

	if args.compact {
		st.GCCompact()
		s := st.GCStat()
		log.Info("compacted", zap.Int("moved", s.LastMoved))
		if err := take("compacted"); err != nil {
			return err
		}
	}

	for _, s := range snaps {
		printSnapshot(s)
	}
	return printGrowth(ctx, store, snaps[0].ID, snaps[len(snaps)-1].ID, args.top)
}

func printSnapshot(s heapdump.Snapshot) {
	fmt.Printf("%s  %-20s objects %s  refs %s  live %s/%s slots  %s\n",
		s.ID, s.Label,
		humanize.Comma(int64(s.Objects)),
		humanize.Comma(int64(s.Refs)),
		humanize.Comma(int64(s.Stat.LiveSlots)),
		humanize.Comma(int64(s.Stat.TotalSlots)),
		humanize.Bytes(s.Stat.MemSize))
}

func listSnapshots(ctx context.Context, store *heapdump.Store) error {
	snaps, err := store.Snapshots(ctx)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tLABEL\tTAKEN\tOBJECTS\tMEMORY")
	for _, s := range snaps {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", s.ID, s.Label,
			humanize.Time(s.TakenAt),
			humanize.Comma(int64(s.Objects)),
			humanize.Bytes(s.Stat.MemSize))
	}
	return w.Flush()
}

func printGrowth(ctx context.Context, store *heapdump.Store, from, to uuid.UUID, top int) error {
	growth, err := store.Growth(ctx, from, to)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tCLASS\tOBJECTS\tBYTES")
	for i, c := range growth {
		if i == top {
			break
		}
		class := c.Class
		if class == "" {
			class = "(hidden)"
		}
		fmt.Fprintf(w, "%s\t%s\t%+d\t%s\n", c.Type, class, c.Count, signedBytes(c.Bytes))
	}
	return w.Flush()
}

func signedBytes(n int64) string {
	if n < 0 {
		return "-" + humanize.Bytes(uint64(-n))
	}
	return "+" + humanize.Bytes(uint64(n))
}
