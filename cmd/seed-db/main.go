package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/domain/auth"
	"github.com/Nickwenniyxiao-art/wayfair-clone/internal/repository"
)

type productSeed struct {
	SKU         string
	Name        string
	Description string
	Category    string
	Price       decimal.Decimal
	Stock       int
}

type couponSeed struct {
	code         string
	kind         string
	value        decimal.Decimal
	maxDiscount  *decimal.Decimal
	minOrder     decimal.Decimal
	usageLimit   *int
	perUserLimit int
	days         int
}

func main() {
	var (
		databaseURL  string
		productsFile string
		customerKey  string
		adminKey     string
		apiKeyPepper string
	)

	flag.StringVar(&databaseURL, "database-url", "", "PostgreSQL connection URL (or DATABASE_URL env)")
	flag.StringVar(&productsFile, "products-file", "db/seed/products.json", "path to products JSON file")
	flag.StringVar(&customerKey, "customer-key", "", "customer API key to seed (or STORE_SEED_CUSTOMER_KEY env)")
	flag.StringVar(&adminKey, "admin-key", "", "admin API key to seed (or STORE_SEED_ADMIN_KEY env)")
	flag.StringVar(&apiKeyPepper, "api-key-pepper", "", "HMAC pepper for API key hashing (or STORE_API_KEY_PEPPER env)")
	flag.Parse()

	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		slog.Error("database URL is required: set --database-url or DATABASE_URL")
		os.Exit(1)
	}
	if customerKey == "" {
		customerKey = os.Getenv("STORE_SEED_CUSTOMER_KEY")
	}
	if adminKey == "" {
		adminKey = os.Getenv("STORE_SEED_ADMIN_KEY")
	}
	if customerKey == "" || adminKey == "" {
		slog.Error("API keys are required: set --customer-key/--admin-key or the STORE_SEED_* envs")
		os.Exit(1)
	}
	if apiKeyPepper == "" {
		apiKeyPepper = os.Getenv("STORE_API_KEY_PEPPER")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := run(ctx, databaseURL, productsFile, customerKey, adminKey, apiKeyPepper); err != nil {
		slog.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("seed completed successfully")
}

func run(ctx context.Context, databaseURL, productsFile, customerKey, adminKey, pepper string) error {
	slog.Info("connecting to database")

	pool, err := repository.NewPool(ctx, databaseURL)
	if err != nil {
		return errors.Wrap(err, "connect to database")
	}
	defer pool.Close()

	slog.Info("running migrations")

	if err := repository.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	customerID, err := seedUser(ctx, pool, "Demo Customer", "customer@example.com")
	if err != nil {
		return errors.Wrap(err, "seed customer")
	}
	adminID, err := seedUser(ctx, pool, "Store Admin", "admin@example.com")
	if err != nil {
		return errors.Wrap(err, "seed admin")
	}

	if err := seedProducts(ctx, pool, productsFile); err != nil {
		return errors.Wrap(err, "seed products")
	}

	if err := seedCoupons(ctx, pool); err != nil {
		return errors.Wrap(err, "seed coupons")
	}

	if err := seedAPIKey(ctx, pool, customerKey, pepper, "Demo customer key", customerID, nil); err != nil {
		return errors.Wrap(err, "seed customer key")
	}
	if err := seedAPIKey(ctx, pool, adminKey, pepper, "Admin key", adminID, []string{"admin"}); err != nil {
		return errors.Wrap(err, "seed admin key")
	}

	return nil
}

func seedUser(ctx context.Context, pool *pgxpool.Pool, name, email string) (int64, error) {
	var id int64
	err := pool.QueryRow(ctx, `INSERT INTO users (name, email) VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, name, email).Scan(&id)
	if err != nil {
		return 0, err
	}

	slog.Info("upserted user", slog.String("email", email), slog.Int64("id", id))
	return id, nil
}

func seedProducts(ctx context.Context, pool *pgxpool.Pool, productsFile string) error {
	slog.Info("reading products file", slog.String("path", productsFile))

	data, err := os.ReadFile(productsFile)
	if err != nil {
		return errors.Wrap(err, "read products file")
	}

	products, err := parseProducts(data)
	if err != nil {
		return errors.Wrap(err, "parse products JSON")
	}

	slog.Info("upserting products", slog.Int("count", len(products)))

	for _, p := range products {
		_, err := pool.Exec(ctx, `INSERT INTO products
			(sku, name, description, category, price, stock)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (sku) DO UPDATE SET
				name = EXCLUDED.name,
				description = EXCLUDED.description,
				category = EXCLUDED.category,
				price = EXCLUDED.price,
				stock = EXCLUDED.stock,
				updated_at = now()`,
			p.SKU, p.Name, p.Description, p.Category, p.Price, p.Stock)
		if err != nil {
			return errors.Wrapf(err, "upsert product %s", p.SKU)
		}

		slog.Info("upserted product", slog.String("sku", p.SKU), slog.String("name", p.Name))
	}

	return nil
}

// parseProducts decodes the seed file with a streaming decoder so malformed
// entries are reported with the offending field.
func parseProducts(data []byte) ([]productSeed, error) {
	var products []productSeed

	d := jx.DecodeBytes(data)
	if err := d.Arr(func(d *jx.Decoder) error {
		var p productSeed
		if err := d.Obj(func(d *jx.Decoder, key string) error {
			var err error
			switch key {
			case "sku":
				p.SKU, err = d.Str()
			case "name":
				p.Name, err = d.Str()
			case "description":
				p.Description, err = d.Str()
			case "category":
				p.Category, err = d.Str()
			case "price":
				var num jx.Num
				if num, err = d.Num(); err == nil {
					p.Price, err = decimal.NewFromString(num.String())
				}
			case "stock":
				p.Stock, err = d.Int()
			default:
				err = d.Skip()
			}
			return err
		}); err != nil {
			return err
		}
		products = append(products, p)
		return nil
	}); err != nil {
		return nil, err
	}

	return products, nil
}

func seedCoupons(ctx context.Context, pool *pgxpool.Pool) error {
	slog.Info("seeding demo coupons")

	twenty := decimal.NewFromInt(20)
	hundred := 100

	coupons := []couponSeed{
		{code: "WELCOME10", kind: "percentage", value: decimal.NewFromInt(10),
			maxDiscount: &twenty, minOrder: decimal.NewFromInt(25), perUserLimit: 1, days: 365},
		{code: "SAVE15", kind: "fixed_amount", value: decimal.NewFromInt(15),
			minOrder: decimal.NewFromInt(75), usageLimit: &hundred, perUserLimit: 2, days: 90},
		{code: "HALFOFF", kind: "percentage", value: decimal.NewFromInt(50),
			minOrder: decimal.NewFromInt(200), usageLimit: &hundred, perUserLimit: 1, days: 30},
	}

	for _, c := range coupons {
		start := time.Now().Add(-time.Hour)
		end := start.AddDate(0, 0, c.days)

		_, err := pool.Exec(ctx, `INSERT INTO coupons
			(code, type, value, max_discount, min_order_amount, usage_limit, per_user_limit, start_date, end_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (code) DO UPDATE SET
				type = EXCLUDED.type,
				value = EXCLUDED.value,
				max_discount = EXCLUDED.max_discount,
				min_order_amount = EXCLUDED.min_order_amount,
				usage_limit = EXCLUDED.usage_limit,
				per_user_limit = EXCLUDED.per_user_limit,
				start_date = EXCLUDED.start_date,
				end_date = EXCLUDED.end_date,
				active = TRUE`,
			c.code, c.kind, c.value, c.maxDiscount, c.minOrder, c.usageLimit, c.perUserLimit, start, end)
		if err != nil {
			return errors.Wrapf(err, "upsert coupon %s", c.code)
		}

		slog.Info("upserted coupon", slog.String("code", c.code))
	}

	return nil
}

func seedAPIKey(ctx context.Context, pool *pgxpool.Pool, apiKey, pepper, name string, userID int64, scopes []string) error {
	keyHash := auth.HashKey([]byte(pepper), apiKey)

	if scopes == nil {
		scopes = []string{}
	}

	_, err := pool.Exec(ctx, `INSERT INTO api_keys (key_hash, name, user_id, scopes)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key_hash) DO UPDATE SET
			name = EXCLUDED.name,
			user_id = EXCLUDED.user_id,
			scopes = EXCLUDED.scopes,
			active = TRUE`,
		keyHash, name, userID, scopes)
	if err != nil {
		return errors.Wrapf(err, "upsert api key %s", name)
	}

	slog.Info("upserted API key", slog.String("name", name))
	return nil
}
