package rec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ValentinKolb/dCDT/cmd/util"
	"github.com/ValentinKolb/dCDT/lib/cdt"
	"github.com/ValentinKolb/dCDT/lib/record"
	"github.com/ValentinKolb/dCDT/lib/store"
	"github.com/spf13/cobra"
)

var (
	putCmd = &cobra.Command{
		Use:   "put [key] [bins]",
		Short: "Writes bins into a record",
		Long: util.WrapString(`Writes bins into a record, creating it if needed. Bins are given as a JSON object, e.g. '{"scores": [5, 7, 6], "name": "a"}'. A bin set to null is removed.`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			bins, err := record.ParseBins([]byte(args[1]))
			if err != nil {
				return err
			}
			ttl, _ := cmd.Flags().GetInt64("ttl")
			if err := rpcStore.Put(args[0], bins, ttl); err != nil {
				return err
			}
			fmt.Println("put successfully")
			return nil
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := rpcStore.Get(args[0])
			if err != nil {
				return err
			}
			printRecord(rec)
			return nil
		},
	}
	existsCmd = &cobra.Command{
		Use:   "exists [key]",
		Short: "Checks if a record exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := rpcStore.Exists(args[0])
			if err != nil {
				return err
			}
			fmt.Printf("key=%s, exists=%v\n", args[0], ok)
			return nil
		},
	}
	removeCmd = &cobra.Command{
		Use:   "remove [key]",
		Short: "Deletes a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := rpcStore.Remove(args[0]); err != nil {
				return err
			}
			fmt.Println("remove successfully")
			return nil
		},
	}
	operateCmd = &cobra.Command{
		Use:   "operate [key] [operations]",
		Short: "Runs operations against a record atomically",
		Long: util.WrapString(`Runs a JSON array of operations against a record. Either all operations succeed or the record is left unchanged. Example: '[{"op": "list_remove_by", "bin": "scores", "by": "rank_range", "rank": -2, "return": "value"}]'`),
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := record.ParseOperations([]byte(args[1]))
			if err != nil {
				return err
			}
			results, err := rpcStore.Operate(args[0], ops)
			if err != nil {
				return err
			}
			for i, res := range results {
				fmt.Printf("%d: %s = %s\n", i, ops[i], util.FormatValue(res))
			}
			return nil
		},
	}
	batchCmd = &cobra.Command{
		Use:   "batch [records]",
		Short: "Runs a batch of independent record commands",
		Long: util.WrapString(`Runs a JSON array of batch records. Each entry has a kind (read, write, apply, remove), a key and, depending on the kind, ops, ttl or module, function and args. A failing entry does not affect the others.`),
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := parseBatch([]byte(args[0]))
			if err != nil {
				return err
			}
			if err := rpcStore.BatchOperate(records); err != nil {
				return err
			}
			for _, r := range records {
				printBatchRecord(r)
			}
			return nil
		},
	}
	infoCmd = &cobra.Command{
		Use:   "info",
		Short: "Prints information about the database of the shard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := rpcStore.GetDBInfo()
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
)

func init() {
	putCmd.Flags().Int64("ttl", store.TTLDefault, util.WrapString("Lifetime of the record (0 = default, -1 = never expire, -2 = keep the current lifetime)"))
}

// --------------------------------------------------------------------------
// Batch descriptors
// --------------------------------------------------------------------------

type batchDescriptor struct {
	Kind     string          `json:"kind"`
	Key      string          `json:"key"`
	Ops      json.RawMessage `json:"ops"`
	TTL      *int64          `json:"ttl"`
	Module   string          `json:"module"`
	Function string          `json:"function"`
	Args     []any           `json:"args"`
}

// parseBatch converts a JSON array of batch descriptors into batch records.
func parseBatch(data []byte) ([]*store.BatchRecord, error) {
	var descs []batchDescriptor
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&descs); err != nil {
		return nil, fmt.Errorf("invalid batch: %w", err)
	}

	records := make([]*store.BatchRecord, 0, len(descs))
	for i, d := range descs {
		var ops []record.Operation
		if len(d.Ops) > 0 {
			var err error
			if ops, err = record.ParseOperations(d.Ops); err != nil {
				return nil, fmt.Errorf("batch record %d: %w", i, err)
			}
		}

		var r *store.BatchRecord
		switch strings.ToLower(d.Kind) {
		case "read":
			r = store.NewBatchRead(d.Key, ops...)
		case "write":
			r = store.NewBatchWrite(d.Key, ops...)
			if d.TTL != nil {
				r.TTL = *d.TTL
			}
		case "apply":
			args := make([]any, len(d.Args))
			for j, a := range d.Args {
				var err error
				if args[j], err = cdt.Normalize(a); err != nil {
					return nil, fmt.Errorf("batch record %d: %w", i, err)
				}
			}
			r = store.NewBatchApply(d.Key, d.Module, d.Function, args...)
		case "remove":
			r = store.NewBatchRemove(d.Key)
		default:
			return nil, fmt.Errorf("batch record %d: unknown kind %q (expected read, write, apply or remove)", i, d.Kind)
		}
		records = append(records, r)
	}
	return records, nil
}

// --------------------------------------------------------------------------
// Output
// --------------------------------------------------------------------------

func printRecord(rec *record.Record) {
	if rec == nil {
		fmt.Println("record=<none>")
		return
	}
	fmt.Printf("key=%s, generation=%d\n", rec.Key, rec.Generation)
	names := make([]string, 0, len(rec.Bins))
	for name := range rec.Bins {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s = %s\n", name, util.FormatValue(rec.Bins[name]))
	}
}

func printBatchRecord(r *store.BatchRecord) {
	fmt.Println(r)
	if r.Err != nil {
		fmt.Printf("  error=%v, inDoubt=%v\n", r.Err, r.InDoubt)
		return
	}
	for i, res := range r.Results {
		fmt.Printf("  %d: %s\n", i, util.FormatValue(res))
	}
	if r.Kind == store.BatchRead && len(r.Ops) == 0 {
		printRecord(r.Record)
	}
}
