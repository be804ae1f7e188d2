package rec

import (
	"github.com/ValentinKolb/dCDT/cmd/util"
	"github.com/ValentinKolb/dCDT/rpc/client"
	"github.com/spf13/cobra"
)

var (
	rpcStore *client.RPCStore

	// RecordCommands represents the record command group
	RecordCommands = &cobra.Command{
		Use:                "rec",
		Short:              "Perform record operations",
		PersistentPreRunE:  setupRecordClient,
		PersistentPostRunE: closeRecordClient,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	util.SetupRPCClientFlags(RecordCommands)

	RecordCommands.AddCommand(putCmd)
	RecordCommands.AddCommand(getCmd)
	RecordCommands.AddCommand(existsCmd)
	RecordCommands.AddCommand(removeCmd)
	RecordCommands.AddCommand(operateCmd)
	RecordCommands.AddCommand(batchCmd)
	RecordCommands.AddCommand(infoCmd)
	RecordCommands.AddCommand(perfTestCmd)
}

// setupRecordClient initializes the RPC store client
func setupRecordClient(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	config := util.GetClientConfig()
	shardId := util.GetShardID()

	s, err := util.GetSerializer()
	if err != nil {
		return err
	}

	t, err := util.GetTransport()
	if err != nil {
		return err
	}

	rpcStore, err = client.NewRPCStore(shardId, *config, t, s)
	return err
}

func closeRecordClient(_ *cobra.Command, _ []string) error {
	if rpcStore == nil {
		return nil
	}
	return rpcStore.Close()
}

