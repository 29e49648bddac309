package main

import (
	"context"
	"fmt"
	"log"

	"github.com/gin-gonic/gin"

	"github.com/Ethan225300/mbspro/api/handler"
	"github.com/Ethan225300/mbspro/api/router"
	"github.com/Ethan225300/mbspro/job"
	"github.com/Ethan225300/mbspro/logic/agent"
	"github.com/Ethan225300/mbspro/logic/chat"
	"github.com/Ethan225300/mbspro/logic/embed"
	"github.com/Ethan225300/mbspro/logic/facts"
	"github.com/Ethan225300/mbspro/logic/reflect"
	"github.com/Ethan225300/mbspro/logic/retrieval"
	"github.com/Ethan225300/mbspro/service"
	"github.com/Ethan225300/mbspro/storage/es"
	storagemilvus "github.com/Ethan225300/mbspro/storage/milvus"
	"github.com/Ethan225300/mbspro/storage/postgres"
	"github.com/Ethan225300/mbspro/types"
	"github.com/Ethan225300/mbspro/vars"

	"github.com/cloudwego/eino/components/embedding"
	milvusclient "github.com/milvus-io/milvus-sdk-go/v2/client"
)

func main() {
	ctx := context.Background()

	// 1. Postgres (catalog rows)
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		vars.PGHOST, vars.PGUSER, vars.PGPWD, vars.PGDB, vars.PGPORT)
	db, err := postgres.InitDB(dsn)
	if err != nil {
		panic(err)
	}
	repo := postgres.NewCatalogRepo(db)

	// Nightly item end-dating.
	job.StartCronJob(repo)

	// 2. Embedding provider. Missing credentials disable vector search
	// instead of killing the server; ingestion will refuse to run.
	var embedder embedding.Embedder
	embedder, err = embed.NewEmbedder(ctx)
	if err != nil {
		log.Printf("⚠️ embedding disabled: %v", err)
		embedder = nil
	}

	// 3. Chat model. Optional: without it the LLM stages degrade.
	chatModel, err := chat.CreateChatModel(ctx, vars.ChatProvider, vars.ChatModel, 0.1)
	var generator chat.Generator
	if err != nil {
		log.Printf("⚠️ chat model disabled: %v", err)
	} else {
		generator = chatModel
	}

	// 4. Milvus client (shared).
	var milvusCli milvusclient.Client
	if embedder != nil {
		milvusCli, err = storagemilvus.NewClient(ctx, vars.MILVUSADDR)
		if err != nil {
			log.Printf("⚠️ milvus unavailable, vector search disabled: %v", err)
			milvusCli = nil
		} else {
			log.Println("✅ Milvus connection established")
		}
	}

	// 5. Elasticsearch (lexical leg).
	esIndexer, err := es.NewESIndexer([]string{vars.ESADDR}, vars.ESINDEX)
	if err != nil {
		panic(err)
	}

	// 6. Retrieval pipeline.
	var searcher retrieval.VectorSearcher
	if milvusCli != nil && embedder != nil {
		searcher = storagemilvus.NewSearcher(milvusCli, embedder, vars.INDEXNAME)
	}
	var reranker retrieval.Reranker
	if vars.RerankerModel != "" {
		reranker = es.NewReranker(esIndexer.GetClient(), vars.ESINDEX)
	}
	retriever := retrieval.NewRetriever(searcher, reranker, generator, vars.RerankCandidates, vars.ReflectionRerankTop)

	// 7. Agent orchestrator.
	extractor := facts.NewExtractor(generator)
	reflector := reflect.NewReflector(generator)
	orch := agent.NewOrchestrator(extractor, reflector, retriever, vars.EnableReflectionRerank)

	// 8. Services + handler.
	agentSvc := service.NewAgentService(orch)
	retrievalSvc := service.NewRetrievalService(retriever)
	ingestionSvc, err := service.NewIngestionService(ctx, repo, esIndexer, embedder, milvusCli, vars.INDEXNAME)
	if err != nil {
		panic(err)
	}

	statusFn := func(c *gin.Context) types.StatusResponse {
		status := types.StatusResponse{
			VectorSearch:      searcher != nil,
			EmbeddingProvider: vars.EmbeddingProvider,
			EmbeddingModel:    vars.EmbeddingModel,
			ChatModel:         vars.ChatModel,
			RerankerModel:     vars.RerankerModel,
			IndexName:         vars.INDEXNAME,
			ESIndex:           vars.ESINDEX,
			Postgres:          repo != nil,
		}
		if repo != nil {
			if total, active, err := repo.Counts(c.Request.Context()); err == nil {
				status.TotalItems = total
				status.ActiveItems = active
			}
		}
		return status
	}
	ragHandler := handler.NewRagHandler(agentSvc, retrievalSvc, ingestionSvc, statusFn)

	// 9. HTTP server.
	r := gin.Default()
	router.RegisterRoutes(r, ragHandler)

	log.Printf("Server running on :%s", vars.PORT)
	r.Run(":" + vars.PORT)
}
