package driver

const (
	SavePageNodeQuery = `
		MERGE (p:Page {page_id: $page_id})
		SET p.title = $title,
			p.space_key = $space_key,
			p.labels = $labels,
			p.degraded = $degraded,
			p.updated_at = $updated_at
		RETURN p.page_id AS page_id
	`

	SetPageMarkdownQuery = `
		MERGE (p:Page {page_id: $page_id})
		SET p.markdown = $markdown,
			p.processed_steps = 'CONVERTED',
			p.updated_at = $updated_at
		RETURN p.page_id AS page_id
	`

	DeletePageLinksQuery = `
		MERGE (p:Page {page_id: $page_id})
		WITH p
		OPTIONAL MATCH ()-[e:LINKS_TO {reported_by: $page_id}]-()
		DELETE e
	`

	SaveOutgoingLinkQuery = `
		MERGE (p:Page {page_id: $page_id})
		MERGE (t:Page {page_id: $target_id})
		ON CREATE SET t.title = $target_title,
			t.space_key = $target_space
		MERGE (p)-[e:LINKS_TO {reported_by: $page_id}]->(t)
		SET e.direction = $direction,
			e.href = $href,
			e.created_at = $created_at
		RETURN e.href AS href
	`

	SaveIncomingLinkQuery = `
		MERGE (p:Page {page_id: $page_id})
		MERGE (s:Page {page_id: $source_id})
		ON CREATE SET s.title = $source_title,
			s.space_key = $source_space
		MERGE (s)-[e:LINKS_TO {reported_by: $page_id}]->(p)
		SET e.direction = $direction,
			e.href = $href,
			e.created_at = $created_at
		RETURN e.href AS href
	`

	MarkPageLinkedQuery = `
		MERGE (p:Page {page_id: $page_id})
		SET p.processed_steps = 'LINKED',
			p.updated_at = $updated_at
		RETURN p.page_id AS page_id
	`

	GetPageMarkdownQuery = `
		MATCH (p:Page {page_id: $page_id})
		RETURN p.markdown AS markdown, p.processed_steps AS processed_steps
	`

	GetPagesByIDQuery = `
		MATCH (p:Page)
		WHERE p.page_id IN $page_ids
		RETURN p.page_id AS page_id, p.title AS title
	`

	GetLinksAmongQuery = `
		MATCH (p:Page)-[e:LINKS_TO]->(t:Page)
		WHERE p.page_id IN $page_ids AND t.page_id IN $page_ids
		RETURN p.page_id AS source_id, t.page_id AS target_id
	`

	GetPageLinksQuery = `
		MATCH (p:Page {page_id: $page_id})-[e:LINKS_TO {reported_by: $page_id}]-(t:Page)
		RETURN e.direction AS direction, e.href AS href, t.page_id AS other_id, t.title AS title
	`
)
