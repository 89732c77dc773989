package workers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"streetpass-backend/models"
	"streetpass-backend/services"
	"streetpass-backend/utils"

	"gorm.io/gorm"
)

// maxMintAttempts bounds relayer retries before a task is parked as failed
// for operator attention.
const maxMintAttempts = 5

// MintRelayClient drains the mint outbox: for each pending task it uploads
// the NFT token metadata, asks the relayer to mint, and stamps the token id
// and transaction hash back onto the check-in. Delivery is at-least-once;
// the relayer dedupes by check-in id.
type MintRelayClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
	DB         *gorm.DB

	// UploadMetadata defaults to the R2 uploader; tests swap it out.
	UploadMetadata func(ctx context.Context, key string, v interface{}) (string, error)
}

func NewMintRelayClient(db *gorm.DB) *MintRelayClient {
	baseURL := os.Getenv("MINT_RELAYER_URL")
	if baseURL == "" {
		log.Fatal("MINT_RELAYER_URL environment variable is required")
	}
	token := os.Getenv("STREETPASS_SERVICE_TOKEN")
	if token == "" {
		log.Fatal("STREETPASS_SERVICE_TOKEN environment variable is required for the mint relayer")
	}

	return &MintRelayClient{
		BaseURL: baseURL,
		Token:   token,
		DB:      db,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		UploadMetadata: utils.UploadJSONToR2,
	}
}

// MintRequest is the relayer wire format.
type MintRequest struct {
	CheckInID     string `json:"check_in_id"`
	WalletAddress string `json:"wallet_address"`
	RarityScore   int    `json:"rarity_score"`
	TokenURI      string `json:"token_uri"`
}

type MintResponse struct {
	TokenID         string `json:"token_id"`
	TransactionHash string `json:"transaction_hash"`
}

func (c *MintRelayClient) SubmitMint(ctx context.Context, req MintRequest) (*MintResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode mint request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST",
		fmt.Sprintf("%s/api/v1/mints", c.BaseURL), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Service-Token", c.Token)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call mint relayer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("mint relayer returned status %d: %s", resp.StatusCode, string(b))
	}

	var out MintResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode mint relayer response: %w", err)
	}
	return &out, nil
}

// tokenMetadata is the ERC-721 metadata document uploaded as the tokenURI
// target.
type tokenMetadata struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Attributes  []metadataAttribute `json:"attributes"`
}

type metadataAttribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// ProcessPending handles one batch of outbox tasks. Per-task failures are
// recorded on the task and do not stop the batch.
func (c *MintRelayClient) ProcessPending(ctx context.Context, limit int) (int, error) {
	var tasks []models.MintTask
	if err := c.DB.
		Where("status = ?", models.MintTaskPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&tasks).Error; err != nil {
		return 0, fmt.Errorf("failed to load pending mint tasks: %w", err)
	}

	done := 0
	for i := range tasks {
		if err := c.processTask(ctx, &tasks[i]); err != nil {
			log.Printf("❌ [MINT] task %s (check-in %s) failed: %v", tasks[i].ID, tasks[i].CheckInID, err)
			continue
		}
		done++
	}
	return done, nil
}

func (c *MintRelayClient) processTask(ctx context.Context, task *models.MintTask) error {
	metadataURL, err := c.ensureMetadata(ctx, task)
	if err != nil {
		return c.recordFailure(task, err)
	}

	resp, err := c.SubmitMint(ctx, MintRequest{
		CheckInID:     task.CheckInID,
		WalletAddress: task.WalletAddress,
		RarityScore:   task.RarityScore,
		TokenURI:      metadataURL,
	})
	if err != nil {
		return c.recordFailure(task, err)
	}

	// Reconcile the committed check-in with the on-chain result.
	return c.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MintTask{}).Where("id = ?", task.ID).
			Updates(map[string]interface{}{
				"status":   models.MintTaskDone,
				"attempts": gorm.Expr("attempts + 1"),
			}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.CheckIn{}).Where("id = ?", task.CheckInID).
			Updates(map[string]interface{}{
				"nft_token_id":     resp.TokenID,
				"transaction_hash": resp.TransactionHash,
			}).Error; err != nil {
			return err
		}
		log.Printf("✅ [MINT] check-in %s minted: token=%s tx=%s", task.CheckInID, resp.TokenID, resp.TransactionHash)
		return nil
	})
}

// ensureMetadata uploads the token metadata once; retries reuse the stored
// URL instead of re-uploading.
func (c *MintRelayClient) ensureMetadata(ctx context.Context, task *models.MintTask) (string, error) {
	if task.MetadataURL != nil && *task.MetadataURL != "" {
		return *task.MetadataURL, nil
	}

	var checkIn models.CheckIn
	if err := c.DB.Preload("Location").Where("id = ?", task.CheckInID).First(&checkIn).Error; err != nil {
		return "", fmt.Errorf("failed to load check-in for metadata: %w", err)
	}
	if checkIn.Location == nil {
		return "", fmt.Errorf("check-in %s has no location", checkIn.ID)
	}
	loc := checkIn.Location

	meta := tokenMetadata{
		Name:        fmt.Sprintf("StreetPass: %s", loc.Name),
		Description: fmt.Sprintf("Verified check-in at %s", loc.Name),
		Attributes: []metadataAttribute{
			{TraitType: "Category", Value: loc.Category},
			{TraitType: "Rarity Score", Value: checkIn.RarityScore},
			{TraitType: "Rarity Tier", Value: string(services.TierForScore(checkIn.RarityScore))},
			{TraitType: "Latitude", Value: loc.Latitude},
			{TraitType: "Longitude", Value: loc.Longitude},
			{TraitType: "Checked In At", Value: checkIn.Timestamp.UTC().Format(time.RFC3339)},
		},
	}

	url, err := c.UploadMetadata(ctx, fmt.Sprintf("metadata/%s.json", task.CheckInID), meta)
	if err != nil {
		return "", fmt.Errorf("failed to upload token metadata: %w", err)
	}

	if err := c.DB.Model(&models.MintTask{}).Where("id = ?", task.ID).
		UpdateColumn("metadata_url", url).Error; err != nil {
		return "", err
	}
	task.MetadataURL = &url
	return url, nil
}

func (c *MintRelayClient) recordFailure(task *models.MintTask, cause error) error {
	attempts := task.Attempts + 1
	status := models.MintTaskPending
	if attempts >= maxMintAttempts {
		status = models.MintTaskFailed
	}
	msg := cause.Error()
	if err := c.DB.Model(&models.MintTask{}).Where("id = ?", task.ID).
		Updates(map[string]interface{}{
			"attempts":   attempts,
			"last_error": msg,
			"status":     status,
		}).Error; err != nil {
		return fmt.Errorf("failed to record mint failure (%v): %w", cause, err)
	}
	return cause
}

// PollMintTasks drains the outbox until the context is cancelled.
func PollMintTasks(ctx context.Context, client *MintRelayClient, pollInterval time.Duration) {
	log.Println("Starting mint outbox polling...")

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Mint outbox polling stopped.")
			return
		case <-ticker.C:
			n, err := client.ProcessPending(ctx, 20)
			if err != nil {
				log.Printf("❌ Error processing mint outbox: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("✅ Settled %d mint task(s)", n)
			}
		}
	}
}
