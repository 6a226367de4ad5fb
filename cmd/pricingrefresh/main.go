package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"
	jsoniter "github.com/json-iterator/go"

	"github.com/gpusizer/gpusizer/internal/catalog"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func main() {
	ctx := context.Background()

	path := getEnv("GPUSIZER_DEVICE_CATALOG", "data/gpu_catalog.json")
	region := getEnv("PRICING_REGION", "us-east-2")
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		log.Fatalf("pricing refresh rewrites JSON catalogs only, got %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatalf("read catalog: %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		log.Fatalf("parse catalog: %v", err)
	}
	log.Printf("Found %d catalog entries in %s", len(rows), path)

	// AWS Pricing API is only available in us-east-1.
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion("us-east-1"))
	if err != nil {
		log.Fatalf("load AWS config: %v", err)
	}
	client := pricing.NewFromConfig(cfg)

	var updated, unmapped int
	for _, row := range rows {
		instance := catalog.InstanceName(row)
		if instance == "" {
			unmapped++
			continue
		}
		hourly, err := fetchOnDemandPrice(ctx, client, instance, region)
		if err != nil {
			log.Printf("WARN: %s in %s: %v", instance, region, err)
			time.Sleep(200 * time.Millisecond)
			continue
		}
		catalog.SetHourlyPriceUSD(row, hourly)
		updated++
		time.Sleep(200 * time.Millisecond)
	}

	if err := writeCatalog(path, rows); err != nil {
		log.Fatalf("write catalog: %v", err)
	}
	log.Printf("Refreshed %d/%d entries for %s (%d without instance names)",
		updated, len(rows), region, unmapped)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// writeCatalog replaces the catalog file atomically so a concurrent reload
// never observes a partial write.
func writeCatalog(path string, rows []map[string]any) error {
	out, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return err
	}
	out = append(out, '\n')
	tmp, err := os.CreateTemp(filepath.Dir(path), ".catalog-*.json")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// fetchOnDemandPrice calls the AWS Pricing API for a single instance type and
// region, returning the Linux on-demand hourly rate.
func fetchOnDemandPrice(ctx context.Context, client *pricing.Client, instanceType, region string) (float64, error) {
	input := &pricing.GetProductsInput{
		ServiceCode: strPtr("AmazonEC2"),
		Filters: []pricingtypes.Filter{
			{Type: pricingtypes.FilterTypeTermMatch, Field: strPtr("instanceType"), Value: strPtr(instanceType)},
			{Type: pricingtypes.FilterTypeTermMatch, Field: strPtr("operatingSystem"), Value: strPtr("Linux")},
			{Type: pricingtypes.FilterTypeTermMatch, Field: strPtr("tenancy"), Value: strPtr("Shared")},
			{Type: pricingtypes.FilterTypeTermMatch, Field: strPtr("preInstalledSw"), Value: strPtr("NA")},
			{Type: pricingtypes.FilterTypeTermMatch, Field: strPtr("capacitystatus"), Value: strPtr("Used")},
			{Type: pricingtypes.FilterTypeTermMatch, Field: strPtr("regionCode"), Value: strPtr(region)},
		},
		MaxResults: int32Ptr(10),
	}

	resp, err := client.GetProducts(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("GetProducts: %w", err)
	}
	if len(resp.PriceList) == 0 {
		return 0, fmt.Errorf("no pricing found for %s in %s", instanceType, region)
	}

	// Parse the first price list entry.
	var product priceDoc
	if err := json.Unmarshal([]byte(resp.PriceList[0]), &product); err != nil {
		return 0, fmt.Errorf("parse price list: %w", err)
	}
	return extractOnDemand(product.Terms.OnDemand)
}

// priceDoc represents the relevant structure of an AWS Pricing API response entry.
type priceDoc struct {
	Terms struct {
		OnDemand map[string]termEntry `json:"OnDemand"`
	} `json:"terms"`
}

type termEntry struct {
	PriceDimensions map[string]priceDimension `json:"priceDimensions"`
}

type priceDimension struct {
	Unit         string            `json:"unit"`
	PricePerUnit map[string]string `json:"pricePerUnit"`
}

func extractOnDemand(terms map[string]termEntry) (float64, error) {
	for _, term := range terms {
		for _, pd := range term.PriceDimensions {
			if pd.Unit == "Hrs" {
				usd, ok := pd.PricePerUnit["USD"]
				if !ok {
					continue
				}
				return strconv.ParseFloat(usd, 64)
			}
		}
	}
	return 0, fmt.Errorf("no hourly on-demand price found")
}

func strPtr(s string) *string { return &s }
func int32Ptr(i int32) *int32 { return &i }
