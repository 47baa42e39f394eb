package main

import (
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/anyswap/CrossChain-HTLC/cmd/utils"
	"github.com/anyswap/CrossChain-HTLC/internal/swapapi"
	"github.com/anyswap/CrossChain-HTLC/log"
	"github.com/anyswap/CrossChain-HTLC/types"
)

var (
	statusCommand = &cli.Command{
		Action:    status,
		Name:      "status",
		Usage:     "show relayer health",
		ArgsUsage: " ",
		Description: `
show per chain cursors, active swap count, upcoming deadline count,
held secrets, job statistics and the effective swap config.
`,
		Flags: commonAdminFlags,
	}

	getCommand = &cli.Command{
		Action:    getSwap,
		Name:      "get",
		Usage:     "show swap record",
		ArgsUsage: "<orderId>",
		Flags:     commonAdminFlags,
	}

	activeCommand = &cli.Command{
		Action:    activeSwaps,
		Name:      "active",
		Usage:     "list active swaps",
		ArgsUsage: " ",
		Flags:     commonAdminFlags,
	}

	deadlinesCommand = &cli.Command{
		Action:    deadlines,
		Name:      "deadlines",
		Usage:     "list upcoming deadlines",
		ArgsUsage: " ",
		Flags:     append([]cli.Flag{utils.WindowFlag}, commonAdminFlags...),
	}

	forceRevealCommand = &cli.Command{
		Action:    forceReveal,
		Name:      "force-reveal",
		Usage:     "publish the secret of a swap now",
		ArgsUsage: "<orderId>",
		Description: `
manual override, the held or shared secret is published through the public
disclosure path and the swap completes.
`,
		Flags: commonAdminFlags,
	}
)

func status(ctx *cli.Context) error {
	if err := checkArgs(ctx, "status", 0); err != nil {
		return err
	}
	if err := prepare(ctx); err != nil {
		return err
	}
	var result swapapi.StatusInfo
	if err := rpcCall(&result, "swap.GetStatus"); err != nil {
		return err
	}
	return printResult(&result)
}

func getSwap(ctx *cli.Context) error {
	if err := checkArgs(ctx, "get", 1); err != nil {
		return err
	}
	if err := prepare(ctx); err != nil {
		return err
	}
	var result types.SwapRecord
	if err := rpcCall(&result, "swap.GetSwap", ctx.Args().Get(0)); err != nil {
		return err
	}
	return printResult(&result)
}

func activeSwaps(ctx *cli.Context) error {
	if err := checkArgs(ctx, "active", 0); err != nil {
		return err
	}
	if err := prepare(ctx); err != nil {
		return err
	}
	var result []*swapapi.SwapSummary
	if err := rpcCall(&result, "swap.GetActiveSwaps"); err != nil {
		return err
	}
	log.Printf("%v active swaps", len(result))
	return printResult(result)
}

func deadlines(ctx *cli.Context) error {
	if err := checkArgs(ctx, "deadlines", 0); err != nil {
		return err
	}
	if err := prepare(ctx); err != nil {
		return err
	}
	params := make(map[string]string)
	if window := ctx.Int64(utils.WindowFlag.Name); window > 0 {
		params["window"] = strconv.FormatInt(window, 10)
	}
	var result []*types.TimeoutAlert
	if err := restGet(&result, "/deadlines", params); err != nil {
		return err
	}
	return printResult(result)
}

func forceReveal(ctx *cli.Context) error {
	if err := checkArgs(ctx, "force-reveal", 1); err != nil {
		return err
	}
	if err := prepare(ctx); err != nil {
		return err
	}
	orderID := ctx.Args().Get(0)
	log.Printf("admin force reveal: %v", orderID)
	var result types.SwapRecord
	if err := restPost(&result, "/swaps/"+orderID+"/force-reveal", nil); err != nil {
		return err
	}
	return printResult(&result)
}
