package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/anyswap/CrossChain-HTLC/cmd/utils"
	"github.com/anyswap/CrossChain-HTLC/rpc/client"
)

const requestTimeout = 30 // seconds

var (
	swapServer  string
	bearerToken string

	commonAdminFlags = []cli.Flag{
		utils.SwapServerFlag,
		utils.BearerTokenFlag,
	}
)

func prepare(ctx *cli.Context) error {
	utils.SetLogger(ctx)
	swapServer = strings.TrimSuffix(ctx.String(utils.SwapServerFlag.Name), "/")
	if swapServer == "" {
		return errors.New("must specify swapserver")
	}
	bearerToken = ctx.String(utils.BearerTokenFlag.Name)
	if bearerToken == "" {
		return errors.New("must specify bearer token")
	}
	return nil
}

func rpcCall(result interface{}, method string, params ...interface{}) error {
	req := client.NewRequest(method, params...)
	req.Headers = client.BearerHeaders(bearerToken)
	req.Timeout = requestTimeout
	return client.RPCPostRequest(swapServer+"/rpc", req, result)
}

func restGet(result interface{}, path string, params map[string]string) error {
	return client.RPCGetRequest(result, swapServer+path, params, client.BearerHeaders(bearerToken), requestTimeout)
}

func restPost(result interface{}, path string, body interface{}) error {
	return client.PostJSON(result, swapServer+path, body, client.BearerHeaders(bearerToken), requestTimeout)
}

func printResult(result interface{}) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func checkArgs(ctx *cli.Context, name string, count int) error {
	if ctx.NArg() != count {
		_ = cli.ShowCommandHelp(ctx, name)
		fmt.Println()
		return fmt.Errorf("invalid arguments: %q", ctx.Args().Slice())
	}
	return nil
}
