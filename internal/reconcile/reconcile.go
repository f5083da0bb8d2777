// File: internal/reconcile/reconcile.go
// Package reconcile keeps stored payment methods and mandate bookkeeping
// consistent with what the connector just confirmed. It runs after a
// successful consent-capturing charge and never rolls that charge back:
// a reconciliation failure flags the instrument save as failed while the
// payment stays successful.
package reconcile

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"payment-orchestration-core/internal/config"
	"payment-orchestration-core/internal/connector"
	"payment-orchestration-core/internal/domain"
	"payment-orchestration-core/internal/domain/model"
	"payment-orchestration-core/internal/domain/ports/adapter"
	"payment-orchestration-core/internal/domain/ports/repository"
	"payment-orchestration-core/internal/infra/metrics"
)

// Input is the post-charge snapshot reconciliation works from.
type Input struct {
	MerchantID          string
	CustomerID          string
	Connector           string
	MerchantConnectorID string
	Attempt             *model.Attempt
	Response            *connector.TransactionResponse
	Card                *connector.CardData
	SetupFutureUsage    model.FutureUsage
	OffSession          bool
	// HasSetupMandateDetails marks a customer-present consent setup; its
	// absence on an off-session charge marks a mandate-derived MIT.
	HasSetupMandateDetails bool
	ConnectorAgnosticMIT   bool
	Scheme                 model.StorageScheme
}

// Result reports what reconciliation recorded.
type Result struct {
	PaymentMethodID string
	SingleUseToken  bool
}

type Reconciler struct {
	methods repository.PaymentMethodRepository
	vault   adapter.Vault
	cfg     *config.Config
	log     *zerolog.Logger
}

func NewReconciler(methods repository.PaymentMethodRepository, vault adapter.Vault, cfg *config.Config, logger *zerolog.Logger) *Reconciler {
	return &Reconciler{methods: methods, vault: vault, cfg: cfg, log: logger}
}

// isMIT reports a merchant-initiated, mandate-derived transaction: the
// customer is not present and this charge did not itself set up the consent.
func (in *Input) isMIT() bool {
	return !in.HasSetupMandateDetails && in.SetupFutureUsage == model.FutureUsageOffSession
}

// SavePaymentMethod persists the instrument the connector just charged.
// Vaulting disabled for the connector synthesizes a local record without
// touching the external vault; otherwise the vault's duplication verdict
// drives insert, reuse or re-save.
func (r *Reconciler) SavePaymentMethod(ctx context.Context, in *Input) (*Result, error) {
	if in.Response == nil {
		return nil, fmt.Errorf("reconcile: no connector response for attempt %s", in.Attempt.AttemptID)
	}
	singleUse := !r.cfg.LongLivedToken(in.Connector)

	if !r.cfg.Locker.Enabled {
		pm, err := r.insertLocal(ctx, in, "", singleUse)
		if err != nil {
			metrics.IncReconcileOutcome("local_insert_failed")
			return nil, err
		}
		metrics.IncReconcileOutcome("synthesized")
		return &Result{PaymentMethodID: pm.PaymentMethodID, SingleUseToken: singleUse}, nil
	}

	if in.Card == nil {
		// Token-only charges have nothing to vault; bookkeeping still runs
		// against the attempt's stored instrument.
		return r.reuseExisting(ctx, in, in.Attempt.PaymentMethodID, singleUse)
	}

	saved, err := r.vault.Save(ctx, in.MerchantID, instrumentFrom(in))
	if err != nil {
		metrics.IncReconcileOutcome("vault_save_failed")
		return nil, fmt.Errorf("reconcile: vault save: %w", err)
	}

	switch saved.Duplication {
	case adapter.DuplicationNone:
		pm, err := r.insertLocal(ctx, in, saved.VaultID, singleUse)
		if err != nil {
			metrics.IncReconcileOutcome("local_insert_failed")
			return nil, err
		}
		metrics.IncReconcileOutcome("inserted")
		return &Result{PaymentMethodID: pm.PaymentMethodID, SingleUseToken: singleUse}, nil

	case adapter.DuplicationDuplicated:
		return r.reconcileDuplicate(ctx, in, saved, singleUse)

	case adapter.DuplicationMetaDataChanged:
		return r.reconcileMetadataChanged(ctx, in, saved, singleUse)
	}
	return nil, fmt.Errorf("reconcile: unknown duplication verdict %q", saved.Duplication)
}

// reconcileDuplicate reuses the already-stored record: the vault confirmed
// the instrument is identical, so only the connector token and, for MIT
// charges, this connector's mandate entry may need a patch.
func (r *Reconciler) reconcileDuplicate(ctx context.Context, in *Input, saved adapter.SaveResult, singleUse bool) (*Result, error) {
	existing, err := r.findExisting(ctx, in, saved.VaultID)
	if err != nil {
		if domain.IsNotFound(err) {
			// Vault knows the instrument, we lost the local record. Rebuild it.
			pm, ierr := r.insertLocal(ctx, in, saved.VaultID, singleUse)
			if ierr != nil {
				metrics.IncReconcileOutcome("local_insert_failed")
				return nil, ierr
			}
			metrics.IncReconcileOutcome("rebuilt")
			return &Result{PaymentMethodID: pm.PaymentMethodID, SingleUseToken: singleUse}, nil
		}
		return nil, err
	}

	if err := r.patchToken(ctx, in, existing); err != nil {
		metrics.IncReconcileOutcome("metadata_patch_failed")
		return nil, err
	}
	if in.isMIT() {
		if err := r.mergeMandateReference(ctx, in, existing); err != nil {
			metrics.IncReconcileOutcome("mandate_merge_failed")
			return nil, err
		}
	}
	metrics.IncReconcileOutcome("reused")
	return &Result{PaymentMethodID: existing.PaymentMethodID, SingleUseToken: existing.SingleUseToken}, nil
}

// reconcileMetadataChanged replaces the stale vaulted instrument: delete,
// re-save under the same vault id, patch the local record. A failure in the
// middle deletes the local record rather than leaving an orphan pointing at
// vault state that no longer matches.
func (r *Reconciler) reconcileMetadataChanged(ctx context.Context, in *Input, saved adapter.SaveResult, singleUse bool) (*Result, error) {
	existing, err := r.findExisting(ctx, in, saved.VaultID)
	if err != nil {
		if domain.IsNotFound(err) {
			pm, ierr := r.insertLocal(ctx, in, saved.VaultID, singleUse)
			if ierr != nil {
				metrics.IncReconcileOutcome("local_insert_failed")
				return nil, ierr
			}
			metrics.IncReconcileOutcome("rebuilt")
			return &Result{PaymentMethodID: pm.PaymentMethodID, SingleUseToken: singleUse}, nil
		}
		return nil, err
	}

	if err := r.vault.Delete(ctx, in.MerchantID, in.CustomerID, existing.LockerID); err != nil {
		return nil, r.abandonLocal(ctx, in, existing, fmt.Errorf("reconcile: deleting stale vault entry: %w", err))
	}
	if _, err := r.vault.SaveAt(ctx, in.MerchantID, existing.LockerID, instrumentFrom(in)); err != nil {
		return nil, r.abandonLocal(ctx, in, existing, fmt.Errorf("reconcile: re-saving vault entry: %w", err))
	}
	if err := r.patchToken(ctx, in, existing); err != nil {
		metrics.IncReconcileOutcome("metadata_patch_failed")
		return nil, err
	}
	if in.isMIT() {
		if err := r.mergeMandateReference(ctx, in, existing); err != nil {
			metrics.IncReconcileOutcome("mandate_merge_failed")
			return nil, err
		}
	}
	metrics.IncReconcileOutcome("resaved")
	return &Result{PaymentMethodID: existing.PaymentMethodID, SingleUseToken: existing.SingleUseToken}, nil
}

// abandonLocal removes the local record after an inconsistent vault
// mutation and surfaces the cause as fatal for this reconciliation only.
func (r *Reconciler) abandonLocal(ctx context.Context, in *Input, pm *model.PaymentMethod, cause error) error {
	if derr := r.methods.DeleteByMerchantIDPaymentMethodID(ctx, in.MerchantID, pm.PaymentMethodID, in.Scheme); derr != nil {
		r.log.Error().Err(derr).
			Str("payment_method_id", pm.PaymentMethodID).
			Msg("deleting local payment method after vault inconsistency")
	}
	metrics.IncReconcileOutcome("vault_inconsistent")
	return cause
}

func (r *Reconciler) findExisting(ctx context.Context, in *Input, vaultID string) (*model.PaymentMethod, error) {
	if vaultID != "" {
		pm, err := r.methods.FindByLockerID(ctx, vaultID, in.Scheme)
		if err == nil || !domain.IsNotFound(err) {
			return pm, err
		}
	}
	if in.Attempt.PaymentMethodID != "" {
		return r.methods.FindByID(ctx, in.Attempt.PaymentMethodID, in.Scheme)
	}
	return nil, domain.NewNotFound("payment method")
}

func (r *Reconciler) reuseExisting(ctx context.Context, in *Input, paymentMethodID string, singleUse bool) (*Result, error) {
	if paymentMethodID == "" {
		return nil, domain.NewNotFound("payment method")
	}
	existing, err := r.methods.FindByID(ctx, paymentMethodID, in.Scheme)
	if err != nil {
		return nil, err
	}
	if err := r.patchToken(ctx, in, existing); err != nil {
		metrics.IncReconcileOutcome("metadata_patch_failed")
		return nil, err
	}
	if in.isMIT() {
		if err := r.mergeMandateReference(ctx, in, existing); err != nil {
			metrics.IncReconcileOutcome("mandate_merge_failed")
			return nil, err
		}
	}
	metrics.IncReconcileOutcome("reused")
	return &Result{PaymentMethodID: existing.PaymentMethodID, SingleUseToken: existing.SingleUseToken}, nil
}

func (r *Reconciler) insertLocal(ctx context.Context, in *Input, vaultID string, singleUse bool) (*model.PaymentMethod, error) {
	pm := &model.PaymentMethod{
		PaymentMethodID: "pm_" + uuid.NewString(),
		MerchantID:      in.MerchantID,
		CustomerID:      in.CustomerID,
		LockerID:        vaultID,
		PaymentMethod:   in.Attempt.PaymentMethod,
		SavedToLocker:   vaultID != "",
		SingleUseToken:  singleUse,
		Metadata:        r.tokenMetadata(in, nil),
	}
	if in.ConnectorAgnosticMIT && in.OffSession {
		pm.NetworkTxnID = in.Response.NetworkTxnID
	}
	if in.isMIT() && in.Response.MandateReference != nil {
		pm.MandateReferences = model.MandateReferenceMap{}
		pm.MandateReferences.Upsert(in.MerchantConnectorID, r.mandateRecord(in))
	}
	if err := r.methods.Insert(ctx, pm, in.Scheme); err != nil {
		return nil, fmt.Errorf("reconcile: inserting payment method: %w", err)
	}
	return pm, nil
}

// patchToken updates the stored connector token when the connector
// reissued one on this charge.
func (r *Reconciler) patchToken(ctx context.Context, in *Input, pm *model.PaymentMethod) error {
	if in.Response.ConnectorToken == "" {
		return nil
	}
	if tok, ok := pm.ConnectorToken(in.Connector); ok && tok == in.Response.ConnectorToken {
		return nil
	}
	meta := r.tokenMetadata(in, pm.Metadata)
	if err := r.methods.UpdateMetadata(ctx, pm.PaymentMethodID, meta, in.Scheme); err != nil {
		return fmt.Errorf("reconcile: patching connector token: %w", err)
	}
	pm.Metadata = meta
	return nil
}

// mergeMandateReference replaces only this merchant-connector account's
// entry; mandates held with other processors stay untouched.
func (r *Reconciler) mergeMandateReference(ctx context.Context, in *Input, pm *model.PaymentMethod) error {
	if in.Response.MandateReference == nil || in.MerchantConnectorID == "" {
		return nil
	}
	refs := model.MandateReferenceMap{}
	for k, v := range pm.MandateReferences {
		refs[k] = v
	}
	refs.Upsert(in.MerchantConnectorID, r.mandateRecord(in))
	if err := r.methods.UpdateMandateReferences(ctx, pm.PaymentMethodID, refs, in.Scheme); err != nil {
		return fmt.Errorf("reconcile: merging mandate reference: %w", err)
	}
	pm.MandateReferences = refs
	return nil
}

func (r *Reconciler) mandateRecord(in *Input) model.MandateReferenceRecord {
	rec := model.MandateReferenceRecord{
		PaymentMethodType:  in.Attempt.PaymentMethod,
		AuthorizedAmount:   in.Attempt.Amount,
		AuthorizedCurrency: in.Attempt.Currency,
	}
	if in.Response.MandateReference != nil {
		rec.ConnectorMandateID = in.Response.MandateReference.ConnectorMandateID
	}
	return rec
}

func (r *Reconciler) tokenMetadata(in *Input, base map[string]string) map[string]string {
	meta := make(map[string]string, len(base)+2)
	for k, v := range base {
		meta[k] = v
	}
	if in.Response.ConnectorToken != "" {
		meta[in.Connector] = in.Response.ConnectorToken
	}
	if in.Card != nil && len(in.Card.Number) >= 4 {
		meta["last4"] = in.Card.Number[len(in.Card.Number)-4:]
	}
	return meta
}

func instrumentFrom(in *Input) adapter.InstrumentDetails {
	details := adapter.InstrumentDetails{
		CustomerID: in.CustomerID,
		Method:     in.Attempt.PaymentMethod,
	}
	if in.Card != nil {
		details.CardNumber = in.Card.Number
		details.ExpiryMonth = in.Card.ExpiryMonth
		details.ExpiryYear = in.Card.ExpiryYear
		details.HolderName = in.Card.HolderName
	}
	return details
}
