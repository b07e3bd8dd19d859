package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"

	"github.com/ruteri/audit-registry/addressing"
	"github.com/ruteri/audit-registry/api"
	"github.com/ruteri/audit-registry/api/clients"
	"github.com/ruteri/audit-registry/cmd/flags"
	"github.com/ruteri/audit-registry/interfaces"
	"github.com/ruteri/audit-registry/metadata"
	"github.com/urfave/cli/v2"
)

var flagOwner *cli.StringFlag = &cli.StringFlag{
	Name:  "owner",
	Usage: "Record owner address, 40-char hex string. Defaults to the address of the signing key",
}
var flagVersion *cli.Uint64Flag = &cli.Uint64Flag{
	Name:     "version",
	Required: true,
	Usage:    "Record version, must be greater than zero",
}
var flagURI *cli.StringFlag = &cli.StringFlag{
	Name:     "uri",
	Required: true,
	Usage:    "Metadata URI, at most 200 bytes",
}
var flagChecksum *cli.StringFlag = &cli.StringFlag{
	Name:     "checksum",
	Required: true,
	Usage:    "Metadata checksum, 64-char hex string",
}
var flagFile *cli.StringFlag = &cli.StringFlag{
	Name:     "file",
	Required: true,
	Usage:    "Metadata document to publish, - for stdin",
}
var flagLocal *cli.BoolFlag = &cli.BoolFlag{
	Name:  "local",
	Usage: "Derive the address locally instead of asking the server",
}
var flagVerify *cli.BoolFlag = &cli.BoolFlag{
	Name:  "verify",
	Usage: "Fetch the metadata document from IPFS and check it against the recorded checksum",
}
var flagUpdate *cli.BoolFlag = &cli.BoolFlag{
	Name:  "update",
	Usage: "Point the signer's record at the published document",
}

const usage string = `Manage audit records: derive addresses, create records, update and read their metadata.`

func main() {
	app := &cli.App{
		Name:  "registry client",
		Usage: usage,
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flags.PrivateKeyFlag,
			flags.PrivateKeyFileFlag,
			flags.APIKeyFlag,
			flags.IPFSAPIFlag,
			flags.LogDebugFlag,
		},
		Commands: []*cli.Command{
			{
				Name:  "address",
				Usage: "Derive the record address of an owner",
				Flags: []cli.Flag{flagOwner, flagLocal},
				Action: func(cCtx *cli.Context) error {
					c, err := NewClientConfig(cCtx, false)
					if err != nil {
						return err
					}
					return c.Address(cCtx.String(flagOwner.Name), cCtx.Bool(flagLocal.Name))
				},
			},
			{
				Name:  "create",
				Usage: "Create the signer's record",
				Flags: []cli.Flag{flagVersion},
				Action: func(cCtx *cli.Context) error {
					c, err := NewClientConfig(cCtx, true)
					if err != nil {
						return err
					}
					return c.Create(cCtx.Uint64(flagVersion.Name))
				},
			},
			{
				Name:  "update",
				Usage: "Replace the metadata URI and checksum of a record",
				Flags: []cli.Flag{flagOwner, flagURI, flagChecksum},
				Action: func(cCtx *cli.Context) error {
					c, err := NewClientConfig(cCtx, true)
					if err != nil {
						return err
					}
					return c.Update(cCtx.String(flagOwner.Name), cCtx.String(flagURI.Name), cCtx.String(flagChecksum.Name))
				},
			},
			{
				Name:  "get",
				Usage: "Read a record",
				Flags: []cli.Flag{flagOwner, flagVerify},
				Action: func(cCtx *cli.Context) error {
					c, err := NewClientConfig(cCtx, false)
					if err != nil {
						return err
					}
					return c.Get(cCtx.Context, cCtx.String(flagOwner.Name), cCtx.Bool(flagVerify.Name))
				},
			},
			{
				Name:  "publish",
				Usage: "Publish a metadata document to IPFS and print its URI and checksum",
				Flags: []cli.Flag{flagFile, flagUpdate},
				Action: func(cCtx *cli.Context) error {
					c, err := NewClientConfig(cCtx, cCtx.Bool(flagUpdate.Name))
					if err != nil {
						return err
					}
					return c.Publish(cCtx.Context, cCtx.String(flagFile.Name), cCtx.Bool(flagUpdate.Name))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

type Client struct {
	Provider  api.RegistryProvider
	Self      *interfaces.OwnerID
	Publisher *metadata.Publisher
	Out       io.Writer
	Log       *slog.Logger
}

func NewClientConfig(cCtx *cli.Context, requireKey bool) (*Client, error) {
	logger := flags.SetupLogger(cCtx)

	registryClient := clients.NewRegistryClient(cCtx.String(flags.ServerAddrFlag.Name), nil)
	registryClient.APIKey = cCtx.String(flags.APIKeyFlag.Name)

	c := &Client{
		Provider:  registryClient,
		Publisher: metadata.NewPublisher(cCtx.String(flags.IPFSAPIFlag.Name), logger),
		Out:       os.Stdout,
		Log:       logger,
	}

	key, err := flags.LoadPrivateKey(cCtx)
	if err != nil {
		if requireKey {
			return nil, err
		}
		return c, nil
	}

	registryClient.Key = key
	self := api.OwnerFromKey(key)
	c.Self = &self
	return c, nil
}

// resolveOwner parses the --owner flag, falling back to the signer's address.
func (c *Client) resolveOwner(raw string) (interfaces.OwnerID, error) {
	if raw != "" {
		owner, err := interfaces.NewOwnerIDFromHex(raw)
		if err != nil {
			return interfaces.OwnerID{}, fmt.Errorf("could not parse owner: %w", err)
		}
		return owner, nil
	}
	if c.Self == nil {
		return interfaces.OwnerID{}, errors.New("--owner is required without a private key")
	}
	return *c.Self, nil
}

func (c *Client) print(v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.Out, string(encoded))
	return err
}

func (c *Client) Address(rawOwner string, local bool) error {
	owner, err := c.resolveOwner(rawOwner)
	if err != nil {
		return err
	}

	if local {
		addr, bump, err := addressing.NewRecordDeriver().Derive(owner)
		if err != nil {
			return fmt.Errorf("address derivation failed: %w", err)
		}
		return c.print(api.NewAddressResponse(addr, bump))
	}

	resp, err := c.Provider.DeriveAddress(owner)
	if err != nil {
		return fmt.Errorf("address request failed: %w", err)
	}
	return c.print(resp)
}

func (c *Client) Create(version uint64) error {
	resp, err := c.Provider.CreateRecord(version)
	if err != nil {
		return fmt.Errorf("record creation failed: %w", err)
	}
	return c.print(resp)
}

func (c *Client) Update(rawOwner, uri, rawChecksum string) error {
	checksum, err := interfaces.NewChecksumFromHex(rawChecksum)
	if err != nil {
		return fmt.Errorf("could not parse checksum: %w", err)
	}

	if rawOwner == "" {
		err = c.Provider.UpdateMetadata(uri, checksum)
	} else {
		owner, perr := c.resolveOwner(rawOwner)
		if perr != nil {
			return perr
		}
		err = c.Provider.UpdateMetadataOf(owner, uri, checksum)
	}
	if err != nil {
		return fmt.Errorf("metadata update failed: %w", err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, rawOwner string, verify bool) error {
	owner, err := c.resolveOwner(rawOwner)
	if err != nil {
		return err
	}

	resp, err := c.Provider.GetRecord(owner)
	if err != nil {
		return fmt.Errorf("record request failed: %w", err)
	}
	if err := c.print(resp); err != nil {
		return err
	}

	if !verify {
		return nil
	}

	rec, err := resp.ToRecord()
	if err != nil {
		return fmt.Errorf("malformed record response: %w", err)
	}
	if _, err := c.Publisher.FetchVerified(ctx, rec.MetadataURI, rec.MetadataChecksum); err != nil {
		return fmt.Errorf("metadata verification failed: %w", err)
	}
	c.Log.Info("Metadata matches recorded checksum", "uri", rec.MetadataURI)
	return nil
}

func (c *Client) Publish(ctx context.Context, file string, update bool) error {
	var (
		doc []byte
		err error
	)
	if file == "-" {
		doc, err = io.ReadAll(os.Stdin)
	} else {
		doc, err = os.ReadFile(file)
	}
	if err != nil {
		return fmt.Errorf("could not read metadata document: %w", err)
	}

	uri, checksum, err := c.Publisher.Publish(ctx, doc)
	if err != nil {
		return fmt.Errorf("publishing failed: %w", err)
	}

	if err := c.print(api.UpdateMetadataRequest{URI: uri, Checksum: checksum.String()}); err != nil {
		return err
	}

	if update {
		if err := c.Provider.UpdateMetadata(uri, checksum); err != nil {
			return fmt.Errorf("metadata update failed: %w", err)
		}
	}
	return nil
}
