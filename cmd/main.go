package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"TabiPlan-App/internal/database"
	domainrepo "TabiPlan-App/internal/domain/repository"
	"TabiPlan-App/internal/domain/service"
	"TabiPlan-App/internal/handler"
	infraDatabase "TabiPlan-App/internal/infrastructure/database"
	infraFirestore "TabiPlan-App/internal/infrastructure/firestore"
	"TabiPlan-App/internal/infrastructure/maps"
	"TabiPlan-App/internal/repository"
	"TabiPlan-App/internal/usecase"
)

func main() {
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using system environment variables")
	}

	supabaseURL := os.Getenv("SUPABASE_URL")
	supabaseAnonKey := os.Getenv("SUPABASE_ANON_KEY")
	mapsAPIKey := os.Getenv("GOOGLE_MAPS_API_KEY")
	projectID := os.Getenv("GOOGLE_CLOUD_PROJECT_ID")

	if supabaseURL == "" || supabaseAnonKey == "" || mapsAPIKey == "" || projectID == "" {
		fmt.Println("⚠️  環境変数が設定されていません:")
		fmt.Println("必要な環境変数:")
		fmt.Println("  SUPABASE_URL")
		fmt.Println("  SUPABASE_ANON_KEY")
		fmt.Println("  GOOGLE_MAPS_API_KEY")
		fmt.Println("  GOOGLE_CLOUD_PROJECT_ID")
		fmt.Println("\n.envファイルを作成するか、環境変数を設定してください")
		log.Fatal("Environment variables not set")
	}

	ctx := context.Background()

	// 旅行データの読み出し元を選択
	// DB直接接続の資格情報があればPostgreSQL、なければSupabase REST APIを使う
	var tripsRepo domainrepo.TripsRepository
	if os.Getenv("SUPABASE_DB_PASSWORD") != "" {
		fmt.Println("Initializing PostgreSQL client...")
		pgClient, err := infraDatabase.NewPostgreSQLClient()
		if err != nil {
			log.Fatalf("PostgreSQLクライアント初期化失敗: %v", err)
		}
		defer pgClient.Close()
		tripsRepo = repository.NewPostgresTripsRepository(pgClient)
		fmt.Println("✅ PostgreSQL connection successful!")
	} else {
		fmt.Println("Initializing Supabase client...")
		supabaseClient, err := database.NewSupabaseClient()
		if err != nil {
			log.Fatalf("Supabaseクライアント初期化失敗: %v", err)
		}
		if err := supabaseClient.HealthCheck(); err != nil {
			log.Fatalf("Supabaseヘルスチェック失敗: %v", err)
		}
		tripsRepo = repository.NewSupabaseTripsRepository(supabaseClient)
		fmt.Println("✅ Supabase connection successful!")
	}

	fmt.Println("Initializing Firestore client...")
	firestoreClient, err := infraFirestore.NewFirestoreClient(ctx, projectID)
	if err != nil {
		log.Fatalf("Firestoreクライアント初期化失敗: %v", err)
	}
	defer firestoreClient.Close()

	// 最適化パイプラインの組み立て
	providers := maps.NewProvidersForModes(mapsAPIKey)
	matrixBuilder := service.NewMatrixBuilder(providers)
	optimizeUseCase := usecase.NewOptimizeUseCase(matrixBuilder)
	itineraryRepo := repository.NewFirestoreItineraryRepository(firestoreClient.GetClient())

	optimizeHandler := handler.NewOptimizeHandler(optimizeUseCase, tripsRepo, itineraryRepo)
	itineraryHandler := handler.NewItineraryHandler(itineraryRepo)

	router := gin.Default()
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "TabiPlan-App"})
	})
	router.POST("/trips/:id/optimize", optimizeHandler.PostOptimize)
	router.GET("/trips/:id/itinerary", itineraryHandler.GetItinerary)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	fmt.Printf("TabiPlan-App server starting on :%s...\n", port)
	log.Fatal(router.Run(":" + port))
}
