package article

import (
	"strconv"
	"time"

	"github.com/akeren/go-rest-starter/config/router"
	"github.com/akeren/go-rest-starter/pkg/ratelimit"
)

const articleCreationRequestsPerMinute = 30

// LimiterFactory provides route-scoped limiters backed by the shared store.
type LimiterFactory interface {
	CreateScopedRateLimiter(name string, requests int, window time.Duration) ratelimit.RateLimiter
}

func NewArticleController(service ArticleService, limiters LimiterFactory) *router.RESTController {
	return router.NewVersionedRESTController(
		"ArticleController",
		"v1",
		"/articles",
		func(rs *router.RouterService, c *router.RESTController) {
			var creationLimiter ratelimit.RateLimiter
			if limiters != nil {
				creationLimiter = limiters.CreateScopedRateLimiter("article-create", articleCreationRequestsPerMinute, time.Minute)
			}

			rs.AddPostHandler(c, creationLimiter, "", createArticleHandler(service), rs.RequireAuth())
			rs.AddGetHandler(c, nil, "", listArticlesHandler(service))
			rs.AddGetHandler(c, nil, "/:id", getArticleHandler(service))
			rs.AddPatchHandler(c, nil, "/:id", updateArticleHandler(service), rs.RequireAuth())
			rs.AddDeleteHandler(c, nil, "/:id", deleteArticleHandler(service), rs.RequireAuth())
		},
	)
}

func createArticleHandler(service ArticleService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		var req CreateArticleRequest
		if result := router.BindJSON(ctx, &req); result != nil {
			return result
		}

		response, err := service.CreateArticle(ctx.Request.Context(), &req)
		if err != nil {
			return router.FromError(err)
		}

		return router.CreatedResult(response, "Article")
	}
}

func listArticlesHandler(service ArticleService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		limit, offset := router.ParsePagination(ctx)

		var filter ListFilter
		if raw := ctx.Query("author_id"); raw != "" {
			authorID, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || authorID == 0 {
				router.GetLogger(ctx).Warn("Invalid author_id filter", "value", raw)
				return router.BadRequestResult("Invalid author_id parameter", nil)
			}
			filter.AuthorID = uint(authorID)
		}

		articles, total, err := service.ListArticles(ctx.Request.Context(), filter, limit, offset)
		if err != nil {
			return router.FromError(err)
		}

		return router.OKResult(router.Page[ArticleResponse]{
			Items:  articles,
			Total:  total,
			Limit:  limit,
			Offset: offset,
		}, "Articles retrieved successfully")
	}
}

func getArticleHandler(service ArticleService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		id, errResult := router.ParseIDParam(ctx, "id")
		if errResult != nil {
			return errResult
		}

		response, err := service.GetArticle(ctx.Request.Context(), id)
		if err != nil {
			return router.FromError(err)
		}

		return router.OKResult(response, "Article retrieved successfully")
	}
}

func updateArticleHandler(service ArticleService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		id, errResult := router.ParseIDParam(ctx, "id")
		if errResult != nil {
			return errResult
		}

		var req UpdateArticleRequest
		if result := router.BindJSON(ctx, &req); result != nil {
			return result
		}

		response, err := service.UpdateArticle(ctx.Request.Context(), id, &req)
		if err != nil {
			return router.FromError(err)
		}

		return router.OKResult(response, "Article updated successfully")
	}
}

func deleteArticleHandler(service ArticleService) router.HandlerFunction {
	return func(ctx *router.RequestContext) *router.ServiceResult {
		id, errResult := router.ParseIDParam(ctx, "id")
		if errResult != nil {
			return errResult
		}

		if err := service.DeleteArticle(ctx.Request.Context(), id); err != nil {
			return router.FromError(err)
		}

		return router.DeletedResult("Article")
	}
}
