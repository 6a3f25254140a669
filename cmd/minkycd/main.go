// main.go - minkycd: MinKYC protocol CLI.
//
// Subcommands:
//   init     create a new identity (mock passport + secret + on-ledger record)
//   request  simulate a relying-party KYC request (writes request.json)
//   prove    build a proof for the active request and submit verification
//   status   show the on-ledger state of this owner's identities
//   revoke   permanently invalidate an identity
//   serve    run the read-only HTTP query API
//
// All state lives under the configured root directory (default ~/.minkyc).

package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mborders/logmatic"
	"github.com/spf13/viper"

	"github.com/minkyc/minkyc-go/api"
	"github.com/minkyc/minkyc-go/internal/kyc"
	"github.com/minkyc/minkyc-go/internal/ledger"
	"github.com/minkyc/minkyc-go/internal/protocol"
	"github.com/minkyc/minkyc-go/internal/wallet"
	"github.com/minkyc/minkyc-go/router"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage: minkycd <init|request|prove|status|revoke|serve> [flags]")
	os.Exit(2)
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	conf := viper.New()
	if err := initConfig(conf); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := newLogger(conf.GetString("logLevel"))

	var err error
	switch os.Args[1] {
	case "init":
		err = runInit(conf, log)
	case "request":
		err = runRequest(conf, log, os.Args[2:])
	case "prove":
		err = runProve(conf, log)
	case "status":
		err = runStatus(conf, log)
	case "revoke":
		err = runRevoke(conf, log, os.Args[2:])
	case "serve":
		err = runServe(conf, log)
	default:
		usage()
	}
	if err != nil {
		log.Fatal("%s", err)
	}
}

// openLedger builds the configured ledger backend. The returned cleanup
// function releases any held connection.
func openLedger(ctx context.Context, conf *viper.Viper) (ledger.Ledger, func(), error) {
	switch backend := conf.GetString("ledgerBackend"); backend {
	case "memory":
		return ledger.NewMemoryLedger(), func() {}, nil
	case "file":
		l, err := ledger.OpenFileLedger(conf.GetString("ledgerFile"))
		if err != nil {
			return nil, nil, err
		}
		return l, func() {}, nil
	case "mongo":
		l, err := ledger.ConnectMongo(ctx, conf.GetString("mongoURL"), conf.GetString("mongoDatabase"))
		if err != nil {
			return nil, nil, err
		}
		return l, func() { _ = l.Disconnect(context.Background()) }, nil
	default:
		return nil, nil, fmt.Errorf("unknown ledger backend %q", backend)
	}
}

func runInit(conf *viper.Viper, log *logmatic.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	l, cleanup, err := openLedger(ctx, conf)
	if err != nil {
		return err
	}
	defer cleanup()

	kp, err := wallet.LoadOrGenerate(conf.GetString("walletFile"))
	if err != nil {
		return err
	}
	owner := protocol.Owner(kp.Owner())

	// Reuse the persisted secret across identities; generate on first run.
	secretFile := conf.GetString("secretFile")
	secret, err := loadSecret(secretFile)
	if err != nil {
		if secret, err = kyc.NewSecret(); err != nil {
			return err
		}
		if err = saveSecret(secretFile, secret); err != nil {
			return err
		}
		log.Info("generated new secret at %s", secretFile)
	}

	doc := kyc.GenerateMockPassport()
	commitment, err := kyc.Commit(doc, secret)
	if err != nil {
		return err
	}

	proto := protocol.New(l)
	res, err := proto.Initialize(ctx, owner, commitment)
	if err != nil {
		return err
	}

	meta := &passportMeta{IdentityIndex: res.Index, IdentityAddress: res.Address.String()}
	if err := savePassport(conf.GetString("passportFile"), doc, meta); err != nil {
		return err
	}

	log.Info("identity initialized: index=%d address=%s", res.Index, res.Address)
	log.Info("commitment: %x", commitment)
	return nil
}

func runRequest(conf *viper.Viper, log *logmatic.Logger, args []string) error {
	fs := flag.NewFlagSet("request", flag.ExitOnError)
	over18 := fs.Bool("over-18", false, "require the user to be over 18")
	countryNot := fs.String("country-not", "", "disallowed countries (comma separated alpha-3 codes)")
	nameMatch := fs.Bool("name", false, "require a name match")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := kyc.Request{
		Over18:    *over18,
		NameMatch: *nameMatch,
		Timestamp: time.Now().UnixMilli(),
	}
	if *countryNot != "" {
		req.CountryNot = strings.Split(strings.ToUpper(*countryNot), ",")
	}
	if err := req.Validate(); err != nil {
		return err
	}
	if err := saveRequest(conf.GetString("requestFile"), req); err != nil {
		return err
	}
	log.Info("request written to %s", conf.GetString("requestFile"))
	return nil
}

func runProve(conf *viper.Viper, log *logmatic.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	l, cleanup, err := openLedger(ctx, conf)
	if err != nil {
		return err
	}
	defer cleanup()

	doc, meta, err := loadPassport(conf.GetString("passportFile"))
	if err != nil {
		return err
	}
	if meta == nil {
		return fmt.Errorf("passport metadata missing, run \"minkycd init\" again to update format")
	}
	secret, err := loadSecret(conf.GetString("secretFile"))
	if err != nil {
		return err
	}
	req, err := loadRequest(conf.GetString("requestFile"))
	if err != nil {
		return err
	}

	kp, err := wallet.Load(conf.GetString("walletFile"))
	if err != nil {
		return err
	}
	owner := protocol.Owner(kp.Owner())

	commitment, err := kyc.Commit(doc, secret)
	if err != nil {
		return err
	}
	codec := kyc.MimcCodec{}
	proof, err := codec.BuildProof(commitment, req, secret)
	if err != nil {
		return err
	}
	fingerprint, err := codec.RequirementFingerprint(req)
	if err != nil {
		return err
	}

	identityAddr, err := ledger.ParseAddress(meta.IdentityAddress)
	if err != nil {
		return err
	}
	// Cross-check the stored address against a fresh derivation; a mismatch
	// means the local cache drifted and the derived address wins.
	if derived := protocol.IdentityAddress(owner, meta.IdentityIndex); derived != identityAddr {
		log.Warn("stored address %s differs from derived %s, using derived", identityAddr, derived)
		identityAddr = derived
	}

	proto := protocol.New(l)
	receiptAddr, err := proto.VerifyProof(ctx, identityAddr, proof, fingerprint, meta.IdentityIndex)
	if err != nil {
		return err
	}

	log.Info("verification APPROVED for identity %s (index %d)", identityAddr, meta.IdentityIndex)
	log.Info("proof receipt: %s", receiptAddr)
	log.Info("this receipt proves the verification happened without revealing document fields")
	return nil
}

func runStatus(conf *viper.Viper, log *logmatic.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	l, cleanup, err := openLedger(ctx, conf)
	if err != nil {
		return err
	}
	defer cleanup()

	kp, err := wallet.Load(conf.GetString("walletFile"))
	if err != nil {
		return err
	}
	owner := protocol.Owner(kp.Owner())

	proto := protocol.New(l)
	count, exists, err := proto.GetCounter(ctx, owner)
	if err != nil {
		return err
	}
	if !exists {
		log.Info("no identities for owner %x", owner[:8])
		return nil
	}

	log.Info("owner %x has created %d identity(ies)", owner[:8], count)
	for index := uint64(0); index < count; index++ {
		addr := protocol.IdentityAddress(owner, index)
		record, err := proto.GetIdentity(ctx, addr)
		if err != nil {
			log.Warn("index %d (%s): %s", index, addr, err)
			continue
		}
		state := "active"
		if record.Revoked {
			state = "revoked"
		}
		log.Info("index %d: address=%s state=%s verifications=%d commitment=%x",
			index, addr, state, record.VerificationCount, record.Commitment[:8])
	}
	return nil
}

func runRevoke(conf *viper.Viper, log *logmatic.Logger, args []string) error {
	fs := flag.NewFlagSet("revoke", flag.ExitOnError)
	index := fs.Int64("index", -1, "identity index to revoke (default: the one in passport.json)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	l, cleanup, err := openLedger(ctx, conf)
	if err != nil {
		return err
	}
	defer cleanup()

	kp, err := wallet.Load(conf.GetString("walletFile"))
	if err != nil {
		return err
	}
	owner := protocol.Owner(kp.Owner())

	target := uint64(0)
	if *index >= 0 {
		target = uint64(*index)
	} else {
		_, meta, err := loadPassport(conf.GetString("passportFile"))
		if err != nil {
			return err
		}
		if meta == nil {
			return fmt.Errorf("passport metadata missing and no -index given")
		}
		target = meta.IdentityIndex
	}

	addr := protocol.IdentityAddress(owner, target)
	proto := protocol.New(l)
	if err := proto.Revoke(ctx, owner, addr); err != nil {
		return err
	}
	log.Info("identity at index %d (%s) revoked", target, addr)
	return nil
}

func runServe(conf *viper.Viper, log *logmatic.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	l, cleanup, err := openLedger(ctx, conf)
	if err != nil {
		return err
	}
	defer cleanup()

	svc := &api.Service{Protocol: protocol.New(l)}
	addr := conf.GetString("listenAddr")
	srv := &http.Server{
		Addr:         addr,
		Handler:      router.Handlers(svc),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	log.Info("query API listening on %s", addr)
	return srv.ListenAndServe()
}
